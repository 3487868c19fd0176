// Package source reads spreadsheet files into sheetmap snapshots. It is
// the file-reading collaborator of the inference engine: CSV, TSV, and
// XLSX inputs (plus gzip, bzip2, xz, and zstandard compressed variants)
// become SheetSnapshot values carrying headers, a bounded row sample, and
// a total row count. The engine itself never touches the filesystem.
package source
