// Package verdict holds build metadata shared by the CLI and the MCP server.
package verdict

// Version is the current release of verdict.
const Version = "0.3.0"
