// Package userdata resolves where promptitude keeps its state: the storage
// root holding repository mirrors, the activation ledger and logs, and the
// flat prompts directory the editor reads. Every location can be overridden
// through PROMPTITUDE_* environment variables or the config file. It also
// implements the layout health check used by `promptitude status`.
package userdata
