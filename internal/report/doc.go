// Package report emits the completeness report for compile runs.
//
// The depth cutoff makes silent gaps possible, so every run can report,
// per section, what was fetched, what failed, how many pages sat on the
// depth boundary, and how many in-scope children the cutoff excluded.
// JSON output targets tooling; Markdown output targets humans.
package report
