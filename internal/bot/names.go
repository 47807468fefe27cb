// internal/bot/names.go
//
// Display names for computer opponents: BOT_NAMES_FILE when set, otherwise
// the embedded list. Loaded once.

package bot

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/millebornes/assets"
)

var (
	namesOnce sync.Once
	names     []string
	namesErr  error
)

// InitNames loads the name list. path may be empty.
func InitNames(path string) error {
	namesOnce.Do(func() {
		if path != "" {
			names, namesErr = readNameFile(path)
		} else {
			names, namesErr = assets.BotNames()
		}
		if namesErr == nil && len(names) == 0 {
			namesErr = errors.New("bot: name list is empty")
		}
	})
	return namesErr
}

// RandomName picks a name not in taken when possible.
func RandomName(taken ...string) string {
	if err := InitNames(""); err != nil || len(names) == 0 {
		return "Bot"
	}
	free := make([]string, 0, len(names))
	for _, n := range names {
		clash := false
		for _, t := range taken {
			if strings.EqualFold(n, t) {
				clash = true
				break
			}
		}
		if !clash {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		free = names
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(free))))
	if err != nil {
		return free[0]
	}
	return free[i.Int64()]
}

func readNameFile(path string) ([]string, error) {
	f, err := os.Open(path)
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
