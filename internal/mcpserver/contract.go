package mcpserver

// NoteFormatContract describes how carnet note content is written, for LLM
// consumers that create or edit notes.
const NoteFormatContract = `# Carnet Note Format

Notes live in notebooks. A note has a title and a Markdown body; there is no
front matter and no file path. Identifiers are opaque strings such as
` + "`" + `note_1717171717171_k2j3h4g5f6d` + "`" + `; never invent one, read them from
` + "`" + `list_notebooks` + "`" + ` and ` + "`" + `list_notes` + "`" + `.

## Body

- Standard GitHub-flavoured Markdown: tables, strikethrough, task lists and
  autolinks are rendered. Single newlines are line breaks.
- UTF-8, any language.

## Images

Images are stored inside carnet and referenced by id:

` + "```" + `markdown
![alt text](image://img_1717171717171_k2j3h4g5f6d)
` + "```" + `

- Upload with the ` + "`" + `attach_image` + "`" + ` tool. It returns a ` + "`" + `reference` + "`" + ` field
  ready to paste into the body, and can append it for you.
- Only image types are accepted (png, jpeg, gif, webp, svg), at most 2 MiB.
- Links to remote images (` + "`" + `https://...` + "`" + `) are left as they are and are not
  stored.
- An ` + "`" + `image://` + "`" + ` id that does not exist renders as a broken-image placeholder.

## Trash

` + "`" + `trash_note` + "`" + ` moves a note to the trash; ` + "`" + `restore_note` + "`" + ` brings it back.
Nothing is ever permanently deleted through these tools.
`
