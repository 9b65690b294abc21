// Package source provides raw-record sources for the reconstruction
// engine: an Ethereum log fetcher, a YAML fixture loader, and (via
// package store) a local SQLite cache.
//
// A source's only job is to deliver the complete batch of raw records;
// ordering is not its concern. Pagination happens inside the fetcher,
// and all pages are collected before the batch is returned, so the
// engine never applies events while fetches are still in flight.
package source
