package mcpserver

// SuggestionContract describes the JSON object a suggestion must be, for
// clients that produce their own suggestions before calling apply_suggestion.
const SuggestionContract = `# Raido Suggestion Contract

A suggestion is advisory. It describes what should happen to ONE file; the
applier re-checks the file on disk before doing anything.

## Shape

` + "```" + `json
{"suggested_name": "Resume_2025_JohnSmith.pdf", "suggested_folder": "Documents/Resumes", "delete": false}
` + "```" + `

## Fields

1. **suggested_name** (string, optional). The new file name, extension
   included. Missing, empty, or containing a path separator keeps the
   current name.
2. **suggested_folder** (string, optional). A folder relative to the
   organizational root, or to the file's own folder when no root is set.
   ` + "`" + `""` + "`" + ` places the file directly at that base, and so does leaving the key
   out. ` + "`" + `null` + "`" + ` or any other non-string keeps the file where it is. Leading slashes are dropped and ` + "`" + `..` + "`" + ` can never
   leave the base; a folder that tries keeps the file where it is.
3. **delete** (boolean, optional). Only a JSON ` + "`" + `true` + "`" + ` deletes. Delete wins
   over rename and move.

## Outcomes

Every apply yields exactly one outcome:

- ` + "`" + `moved` + "`" + ` with ` + "`" + `from` + "`" + ` and ` + "`" + `to` + "`" + ` (rename, move, or both);
- ` + "`" + `deleted` + "`" + `;
- ` + "`" + `skipped` + "`" + ` with a reason (` + "`" + `no-op` + "`" + `, ` + "`" + `declined` + "`" + `, ` + "`" + `not-found` + "`" + `, ` + "`" + `cancelled` + "`" + `, ` + "`" + `dry-run` + "`" + `, ` + "`" + `changed` + "`" + ` when a file
  was modified since it was scanned and a delete was asked for);
- ` + "`" + `conflict` + "`" + ` when the destination is taken (nothing is overwritten);
- ` + "`" + `failed` + "`" + ` with an error; the file is left where it was.

Applying the same suggestion twice is safe: the second call is a no-op.
`
