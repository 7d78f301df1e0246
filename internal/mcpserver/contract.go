package mcpserver

// InputFormatContract describes the input file format that LLM consumers
// should follow when importing a new input.
const InputFormatContract = `# licaudit Input Format Contract

An input file describes one scanned project: its resource tree and the
attributions (signals) scanners found on it. It is JSON or YAML, matching
the extension of the configured input file.

## Structure

` + "```" + `json
{
  "metadata": {"projectId": "my-project", "fileCreationDate": "2024-01-01"},
  "resources": {
    "src": {"app.js": 1, "lib": {"util.js": 1}},
    "vendor": {"bundle.js": {"inner.js": 1}}
  },
  "externalAttributions": {
    "e1": {
      "packageType": "npm", "packageName": "react", "packageVersion": "18.2.0",
      "licenseName": "MIT", "copyright": "Meta Platforms, Inc.",
      "criticality": "high", "source": {"name": "sc", "documentConfidence": 90}
    }
  },
  "resourcesToAttributions": {"/src/app.js": ["e1"]},
  "externalAttributionSources": {"sc": {"name": "ScanCode", "priority": 1}},
  "attributionBreakpoints": ["/node_modules/"],
  "filesWithChildren": ["/vendor/bundle.js/"]
}
` + "```" + `

## Rules

1. **` + "`" + `metadata.projectId` + "`" + ` is required.** Review state is stored per project id.
2. **` + "`" + `resources` + "`" + ` is required.** A file is ` + "`" + `1` + "`" + `, a folder is an object. Key order is kept.
3. **Resource paths** start with ` + "`" + `/` + "`" + `. Folder paths end with ` + "`" + `/` + "`" + `, file paths do not.
4. **Criticality** is ` + "`" + `medium` + "`" + `, ` + "`" + `high` + "`" + ` or absent.
5. **Sources** need a ` + "`" + `name` + "`" + ` and a non-negative ` + "`" + `priority` + "`" + `; higher priority wins.
6. **Breakpoints** are folders that stop attribution inheritance.
7. **Files with children** are archives or bundles listed as folders; they
   are reported as files (without the trailing slash) in expanded views.

## Importing

- Use the ` + "`" + `import_input` + "`" + ` tool with an http(s) URL or a base64 ` + "`" + `data:` + "`" + ` URI.
- The previous input is moved to ` + "`" + `backups/` + "`" + ` before the new one is written.
- Manual attributions already reviewed for the same project id are kept.
`
