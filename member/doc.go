// Package member owns member accounts: registration, profile reads and
// updates, and the credential check used at login.
//
// Members are identified by their login id, which is also the account
// identifier carried in token subjects and refresh records.
package member
