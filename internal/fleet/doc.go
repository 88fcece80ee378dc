// Package fleet turns raw input rows into validated provisioning specs.
//
// Each row pairs a fully-qualified instance name
// (projects/<project>/zones/<zone>/instances/<name>) with a JSON array of
// agent rules. Rows are parsed independently: a malformed row yields a
// [ParseError] or [ValidationError] carrying its row number and never
// prevents the remaining rows from producing a [Spec].
package fleet
