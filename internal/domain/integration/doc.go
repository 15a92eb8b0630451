// Package integration contains the Integration bounded context.
// This context manages credentials and token lifecycle for the external
// platforms this middleware talks to (Siigo ERP and MercadoLibre).
//
// Key concepts:
//   - Credential: Entity holding the stored tokens and account identity
//     for one (platform, account) pair
//   - TokenRefresher: Port interface for exchanging stored credentials
//     for fresh token material against a platform's token endpoint
//   - MarketplaceClient / ErpClient: Port interfaces for the proxied
//     platform API calls (orders, products, inventory, profile)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
