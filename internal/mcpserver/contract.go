package mcpserver

// ComponentFormatContract describes how components are written inside MDX
// documents so that LLM consumers produce sources the compiler accepts.
const ComponentFormatContract = `# fuma Component Format Contract

Components are self-closing JSX tags whose name is a registered component id.

## Structure

` + "```" + `mdx
---
title: Page title                 # OPTIONAL – YAML frontmatter, first thing in the file
---

# Heading

<fs_component name="emmanuel" age={30} tags={["a","b"]} />
` + "```" + `

## Rules

1. **Tag names** are lowercase snake_case ids (e.g. ` + "`" + `fs_component` + "`" + `). Only registered
   ids are treated as components; other tags pass through unchanged.
2. **Components are self-closing.** Children between an opening and closing tag are rejected.
3. **Strings** are written as quoted attributes: ` + "`" + `name="value"` + "`" + ` or ` + "`" + `name='value'` + "`" + `.
   A string containing both quote kinds is written as a JSON string expression.
4. **Numbers, booleans, arrays and objects** are written as JSON inside braces:
   ` + "`" + `age={30}` + "`" + `, ` + "`" + `draft={false}` + "`" + `, ` + "`" + `meta={{"k":"v"}}` + "`" + `.
5. **No other expressions.** Variables, calls and operators inside braces are rejected.
   ` + "`" + `null` + "`" + ` is not a property value.
6. **Block components** stand alone on their own line; a tag inside a paragraph is inline.
7. **Frontmatter** must be valid YAML mapping. Its values may not be null.
`
