// Package web3 houses blockchain connectivity for the agent: network
// endpoint definitions here, and the NEAR provider, key handling,
// transaction encoding and connection adapter under near/.
package web3
