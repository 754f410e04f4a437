// Package mock provides seed data and random content for the simulated
// chat transport: eight contacts with a short history, canned replies and
// presence statuses.
package mock
