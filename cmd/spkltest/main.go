package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

var (
	compiler     = flag.String("compiler", "./spackel", "Path to the compiler to test.")
	compilerArgs = flag.String("compiler-args", "", "Extra arguments for the compiler (space-separated).")
	testFiles    = flag.String("test-files", "examples/*.spkl", "Glob pattern(s) for programs to test (space-separated).")
	cacheDir     = flag.String("cache-dir", "", "Keep compiled binaries here, keyed by source hash, and reuse them.")
	timeout      = flag.Duration("timeout", 10*time.Second, "Timeout for each command execution.")
	jobs         = flag.Int("j", 4, "Number of parallel test jobs.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cNone   = "\x1b[0m"
)

type result struct {
	File    string
	Status  string // PASS, FAIL, SKIP, ERROR
	Message string
	Diff    string
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s bad glob pattern(s): %v", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	binDir := *cacheDir
	if binDir == "" {
		binDir, err = os.MkdirTemp("", "spkltest-*")
		if err != nil {
			log.Fatalf("%s[ERROR]%s failed to create temp directory: %v", cRed, cNone, err)
		}
		defer os.RemoveAll(binDir)
	} else if err := os.MkdirAll(binDir, 0o755); err != nil {
		log.Fatalf("%s[ERROR]%s failed to create cache directory: %v", cRed, cNone, err)
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan result, len(files))
	var wg sync.WaitGroup
	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, binDir)
			}
		}()
	}
	for _, file := range files {
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []result
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n%s", cRed, cNone, r.Message, indent(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Printf("Summary: %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if failed+errored > 0 {
		os.Exit(1)
	}
}

func testFile(file, binDir string) result {
	expectedFile := strings.TrimSuffix(file, filepath.Ext(file)) + ".expected"
	expected, err := os.ReadFile(expectedFile)
	if err != nil {
		return result{File: file, Status: "SKIP", Message: "no .expected file"}
	}

	hash, err := hashFile(file)
	if err != nil {
		return result{File: file, Status: "ERROR", Message: fmt.Sprintf("failed to hash source: %v", err)}
	}
	binaryPath := filepath.Join(binDir, hash)

	// The binary name is the source hash, so a cache hit means the source
	// is unchanged and the old binary is still good.
	if _, err := os.Stat(binaryPath); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		args := []string{"-o", binaryPath}
		args = append(args, strings.Fields(*compilerArgs)...)
		args = append(args, file)
		cmd := exec.CommandContext(ctx, *compiler, args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			return result{File: file, Status: "FAIL", Message: "compilation failed", Diff: string(output)}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result{File: file, Status: "FAIL", Message: "program timed out"}
		}
		return result{File: file, Status: "FAIL",
			Message: fmt.Sprintf("program exited with an error: %v", err), Diff: stderr.String()}
	}

	if diff := cmp.Diff(string(expected), stdout.String()); diff != "" {
		return result{File: file, Status: "FAIL", Message: "output mismatch (-want +got)", Diff: diff}
	}
	return result{File: file, Status: "PASS", Message: "output matches " + filepath.Base(expectedFile)}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		sb.WriteString("    " + line + "\n")
	}
	return sb.String()
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			if !seen[file] {
				all = append(all, file)
				seen[file] = true
			}
		}
	}
	return all, nil
}
