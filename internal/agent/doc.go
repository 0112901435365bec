// Package agent implements the NEAR agent: it validates its configuration,
// owns one connection to a NEAR RPC node, tracks whether it is running and
// dispatches actions to the connection. Only "transaction" actions are
// understood; every other type is rejected.
package agent
