package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed sql/*.sql bots/default.lua bots/names.txt
var FS embed.FS

// ReadLines returns the non-blank, non-comment lines of an embedded text file.
func ReadLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Migrations exposes sql/*.sql as a file system rooted at sql/.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

func BotNames() ([]string, error) {
	return ReadLines("bots/names.txt")
}

func DefaultBotScript() string {
	b, err := FS.ReadFile("bots/default.lua")
	if err != nil {
		panic(err)
	}
	return string(b)
}
