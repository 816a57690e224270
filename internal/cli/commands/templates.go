package commands

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// templateData fills the .tmpl files of a project template.
type templateData struct {
	Workspace string
	Task      string
	Schema    string
}

// copyTemplate copies an embedded template directory to the target path.
// Files ending in .tmpl are rendered with data and lose the suffix.
// It handles special file renames (e.g., "gitignore" -> ".gitignore").
// It returns the files written, relative to targetDir.
func copyTemplate(templateName, targetDir string, data templateData, force bool) ([]string, error) {
	root := filepath.ToSlash(filepath.Join("templates", templateName))
	var written []string

	err := fs.WalkDir(templateFS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		relPath = renameSpecialFiles(relPath)
		targetPath := filepath.Join(targetDir, relPath)

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil // Skip existing files
			}
		}

		content, err := templateFS.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".tmpl") {
			if content, err = render(path, content, data); err != nil {
				return err
			}
		}

		if err := os.WriteFile(targetPath, content, 0600); err != nil {
			return err
		}
		written = append(written, relPath)
		return nil
	})

	return written, err
}

func render(name string, content []byte, data templateData) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renameSpecialFiles handles files that need renaming (e.g., dotfiles).
func renameSpecialFiles(path string) string {
	base := filepath.Base(path)
	dir := filepath.Dir(path)

	switch base {
	case "gitignore":
		return filepath.Join(dir, ".gitignore")
	case "env.example":
		return filepath.Join(dir, ".env.example")
	default:
		return strings.TrimSuffix(path, ".tmpl")
	}
}
