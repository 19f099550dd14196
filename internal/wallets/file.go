package wallets

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"pumpwatch/internal/solana"
)

// LoadFile reads a wallet seed file with one base58 address per line.
// Blank lines and lines starting with '#' are skipped; invalid addresses
// are dropped. Returns the valid addresses and the number dropped.
func LoadFile(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wallet file: %w", err)
	}
	defer f.Close()

	var addresses []string
	dropped := 0
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !solana.IsValidAddress(line) {
			dropped++
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read wallet file: %w", err)
	}
	return addresses, dropped, nil
}
