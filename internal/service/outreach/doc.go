// Package outreach implements the lead outreach pipeline lifecycle:
// importing generated leads, enriching them, producing message variants,
// reviewing variants, and preparing failed messages for retry.
//
// The service layer depends only on the repository interfaces defined in
// this package and should never import from api/. Repository
// implementations live in repository/postgres/ and repository/sqlite/.
package outreach
