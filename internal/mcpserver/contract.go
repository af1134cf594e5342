package mcpserver

// AnnotationFormat describes the plain-text annotations miding derives
// tasks, tickets, projects and journal metadata from.
const AnnotationFormat = `# miding Annotation Format

Notes are free text. A handful of line-oriented annotations turn parts of
that text into structured items. Anything that does not match is ignored, so
a typo never breaks a note.

Dates are always ` + "`" + `yyyy-MM-dd` + "`" + `, times ` + "`" + `HH:mm` + "`" + `, both in local time.

## Tasks

A line starting with ` + "`" + `- [ ] ` + "`" + ` (open) or ` + "`" + `- [x] ` + "`" + ` (done) is a task. Leading
indentation is allowed. Inline annotations may appear anywhere in the text:

| Annotation | Meaning |
|---|---|
| ` + "`" + `@due(2026-02-20)` + "`" + ` | due date |
| ` + "`" + `@time(14:30)` + "`" + ` | due time |
| ` + "`" + `@priority(high)` + "`" + ` | low, medium, high or critical |
| ` + "`" + `@cat(Design)` + "`" + ` | category |
| ` + "`" + `@done(2026-02-18)` + "`" + ` | completion date, stamped when a task is checked |

The first occurrence of each annotation wins. Task ids are derived from the
line number and text, so editing a task line gives it a new id.

` + "```" + `markdown
- [ ] Draft release notes @due(2026-02-20) @time(14:30) @priority(high) @cat(Docs)
- [x] Book venue @done(2026-02-18)
` + "```" + `

## Tickets

A ` + "`" + `:::ticket` + "`" + ` line opens a ticket block and ` + "`" + `:::` + "`" + ` closes it. Inside, each
line is ` + "`" + `Key: value` + "`" + ` (keys are case-insensitive). Known keys: ID, Title,
Status (open, in-progress, blocked, closed), Priority, Owner, Project, Due,
Created, Closed. Text after the closing line, up to the next block or task,
is the ticket body.

` + "```" + `markdown
:::ticket
ID: T-101
Title: Fix login bug
Status: in-progress
Priority: high
Owner: Alice
Due: 2026-03-01
:::
Users on Safari are logged out after refresh.
` + "```" + `

Ticket identifiers are not unique; two notes may carry the same ID.

## Projects

` + "```" + `markdown
:::project
Name: Website Relaunch
Status: active
Owner: Bob
Deadline: 2026-06-01
:::
` + "```" + `

## Journal metadata

A ` + "`" + `---` + "`" + ` fenced block on the very first line holds journal metadata:

` + "```" + `markdown
---
date: 2026-02-20
mood: good
energy: 7
sleep: 7h30m
tags: [work, personal]
---
` + "```" + `
`
