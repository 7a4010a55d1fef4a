// Package catalog reads the change feed: a root index of pages, each page a list of items
//
// Design choices:
// - Pages are fetched in parallel with a fixed bound; the first failure cancels the rest.
// - Transient HTTP failures are retried with exponential backoff inside the client, so the
//   reader only ever sees a final answer per document.
// - Item shapes are validated at this boundary; downstream code trusts CatalogEntry.
// - The entity id and version fields are JSONPath selectors so feeds with other field names work.
package catalog
