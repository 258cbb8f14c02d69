// Package domain holds the calls the console makes against the business
// API: occurrences, corrections, activities and their settlement.
//
// Every call checks the context identifiers it needs (EmpresaId, UnidadeId,
// SiteId, X-Transaction-Id) before touching the network and fails with a
// *ConfigError naming the missing ones. Every call returns a Result carrying
// a description of the request that was sent, for display and cURL export,
// alongside the response.
package domain
