package gdrive

import "strings"

// Query describes a files.list search. The zero value matches every
// non-trashed object visible to the account.
type Query struct {
	ParentID       string
	Title          string
	FoldersOnly    bool
	IncludeTrashed bool
}

// String renders q in Drive query syntax, e.g.
// "title = 'Books' and 'root' in parents and trashed = false".
func (q Query) String() string {
	var clauses []string

	if q.Title != "" {
		clauses = append(clauses, "title = '"+escapeQuery(q.Title)+"'")
	}

	if q.ParentID != "" {
		clauses = append(clauses, "'"+escapeQuery(q.ParentID)+"' in parents")
	}

	if q.FoldersOnly {
		clauses = append(clauses, "mimeType = '"+FolderMimeType+"'")
	}

	if !q.IncludeTrashed {
		clauses = append(clauses, "trashed = false")
	}

	return strings.Join(clauses, " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// escapeQuery escapes backslashes and single quotes inside a quoted
// query literal.
func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
