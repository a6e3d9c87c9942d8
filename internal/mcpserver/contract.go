package mcpserver

// SyntaxContract describes the inline tagging syntax the plan is parsed
// from. LLM consumers should follow it when writing plan documents.
const SyntaxContract = `# Bujo Tagging Syntax

A document becomes a project once it holds at least one task line. Every
construct is a single line; unknown lines are ignored.

## Structure

` + "```" + `markdown
## Project name
> One-line description
Tracker: https://tracker.example/alpha

Design review #任务 @L1 @2026-02-24 https://tracker.example/1
Draft slides @2026-02-24 10:00:00~11:00:00
Send notes @2026-02-25 #done
[Spec](https://docs.example/spec)
` + "```" + `

## Rules

1. **Project name** is the last ` + "`" + `## ` + "`" + ` heading. Without one the last path
   segment of the document is used.
2. **Description** is a ` + "`" + `> ` + "`" + ` line after the heading.
3. **Project links** are markdown links or ` + "`" + `label: URL` + "`" + ` lines before the first task.
4. **Tasks** carry ` + "`" + `#任务` + "`" + `. ` + "`" + `@L1` + "`" + `, ` + "`" + `@L2` + "`" + ` or ` + "`" + `@L3` + "`" + ` sets the
   nesting level (default L1). A task may carry its own date marker and bare URLs.
5. **Items** are lines under a task with a date marker:
   ` + "`" + `@YYYY-MM-DD` + "`" + `, ` + "`" + `@YYYY-MM-DD HH:MM:SS` + "`" + ` or
   ` + "`" + `@YYYY-MM-DD HH:MM:SS~HH:MM:SS` + "`" + `.
6. **Status** is a trailing tag on an item: ` + "`" + `#done` + "`" + ` / ` + "`" + `#已完成` + "`" + ` (completed),
   ` + "`" + `#abandoned` + "`" + ` / ` + "`" + `#已放弃` + "`" + ` (abandoned). No tag means pending.
7. **Task links** are markdown links on undated lines under a task.
8. Tags inside inline code spans are ignored.
`
