// Package model defines shared data types used across chatlink.
//
// Conventions:
//   - IDs: strings; new message IDs are UUIDs (see NewMessageID)
//   - Timestamps: time.Time in memory, ISO-8601 on the wire
//   - Enumerations: string types whose values match the wire protocol
package model
