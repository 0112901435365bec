// Package near is the NEAR connection adapter: it selects the RPC endpoint,
// probes the node, binds the signer to the account, and exposes balance
// queries and transaction submission to the agent layer.
package near
