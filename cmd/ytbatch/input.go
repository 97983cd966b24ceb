package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ytbatch/internal/config"
)

// readURLLines returns one URL per non-empty line, skipping # comments.
func readURLLines(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

// collectURLs merges positional arguments, the --file list and stdin ("-").
func collectURLs(args []string, file string, stdin io.Reader) ([]string, error) {
	var urls []string
	readStdin := false
	for _, arg := range args {
		if strings.TrimSpace(arg) == "-" {
			readStdin = true
			continue
		}
		urls = append(urls, arg)
	}

	if file = strings.TrimSpace(file); file != "" {
		if file == "-" {
			readStdin = true
		} else {
			path, err := config.ExpandPath(file)
			if err != nil {
				return nil, err
			}
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open url file: %w", err)
			}
			lines, err := readURLLines(f)
			_ = f.Close()
			if err != nil {
				return nil, err
			}
			urls = append(urls, lines...)
		}
	}

	if readStdin {
		lines, err := readURLLines(stdin)
		if err != nil {
			return nil, err
		}
		urls = append(urls, lines...)
	}
	return urls, nil
}
