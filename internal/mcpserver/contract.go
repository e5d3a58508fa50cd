package mcpserver

// NoteFormat describes the note record and the rules the tools enforce.
const NoteFormat = `# Note Format

A note is a flat record. Only title and content are supplied by callers;
the server assigns the rest.

| Field | Type | Set by |
|---|---|---|
| ` + "`id`" + ` | string (UUID v4) | server, on create |
| ` + "`title`" + ` | string | caller |
| ` + "`content`" + ` | string, plain text | caller |
| ` + "`createdAt`" + ` | RFC 3339 timestamp | server, on create |
| ` + "`updatedAt`" + ` | RFC 3339 timestamp | server, on every change |

## Rules

1. **Title** must be at least 3 characters long.
2. **Content** must be at least 5 characters long.
3. Both are required on create. On update, omitted fields keep their value.
4. Content is stored verbatim. There is no Markdown parsing, tagging or linking.
5. Lists are ordered by ` + "`createdAt`" + `, newest first. Search is a case-insensitive
   substring match on title and content.
`
