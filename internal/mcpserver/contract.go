package mcpserver

// NoteFormatContract describes how notes are named and stored, for LLM
// consumers that create or update notes.
const NoteFormatContract = `# QuickNote Note Format Contract

A note is a single file: a name and its text content. Nothing else is stored.

## Names

1. A name is a plain file name: no ` + "`" + `/` + "`" + ` or ` + "`" + `\` + "`" + `, not ` + "`" + `.` + "`" + ` or ` + "`" + `..` + "`" + `, no control characters.
2. The extension selects the kind: ` + "`" + `.md` + "`" + ` for Markdown, ` + "`" + `.txt` + "`" + ` for plain text.
3. At most 255 characters. Names are compared after Unicode NFC normalization.
4. Generated names look like ` + "`" + `Note-2025-01-20T09-30-00-000Z.md` + "`" + `.

## Content

- UTF-8 text, stored verbatim. Empty content is a valid note.
- Markdown notes may start with YAML frontmatter; a ` + "`" + `title` + "`" + ` key, or else the
  first ` + "`" + `# heading` + "`" + `, is shown as the note title in listings.

## Lifecycle

- ` + "`" + `save_note` + "`" + ` overwrites without asking. Use ` + "`" + `new_note` + "`" + ` to avoid clobbering.
- ` + "`" + `delete_note` + "`" + ` moves the note to the recycle bin. Entries older than the
  retention window (30 days by default) are purged for good.
- Every delete is recorded in the operation log.

## Example

` + "```" + `markdown
---
title: Weekly standup
---

# Weekly standup

- review the design doc
- update the roadmap
` + "```" + `
`
