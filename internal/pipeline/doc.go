// Package pipeline loads every ensemble's trajectory concurrently, trims and
// decorrelates it, and hands back the per-ensemble samples in input order.
// It knows nothing about MBAR or output formats.
package pipeline
