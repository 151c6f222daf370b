package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"askrelay/pkg/types"
)

// Exit codes reported to scripting callers
const (
	exitAnswered        = 0
	exitRuntimeError    = 1
	exitValidationError = 2
	exitExpired         = 3
	exitCancelled       = 4
)

func main() {
	os.Exit(run())
}

// run reads a request batch from stdin, sends it over the ask socket and
// blocks until the broker delivers a resolution
func run() int {
	socketPath := flag.String("socket", defaultSocketPath(), "path to the ask socket")
	timeoutMS := flag.Uint64("timeout-ms", 0, "session timeout in milliseconds (0 = no timeout)")
	jsonOutput := flag.Bool("json", false, "print the raw resolution JSON")
	flag.Parse()

	batch, err := readRequestBatch(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidationError
	}

	request := types.SocketRequest{
		Type:           types.RequestTypeAsk,
		AskID:          fmt.Sprintf("ask-%s", uuid.New().String()),
		Request:        *batch,
		TimeoutMS:      *timeoutMS,
		RequestedAtISO: time.Now().UTC().Format(time.RFC3339),
	}

	response, err := requestResolution(*socketPath, &request)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}

	if *jsonOutput {
		encoded, err := json.Marshal(response)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode resolution: %v\n", err)
			return exitRuntimeError
		}
		fmt.Println(string(encoded))
	} else {
		printResolution(response)
	}

	switch response.Status {
	case types.StatusAnswered:
		return exitAnswered
	case types.StatusCancelled:
		return exitCancelled
	case types.StatusExpired:
		return exitExpired
	default:
		fmt.Fprintf(os.Stderr, "unknown resolution status: %s\n", response.Status)
		return exitRuntimeError
	}
}

// readRequestBatch parses and validates the stdin JSON
func readRequestBatch(stdin *os.File) (*types.AskRequestBatch, error) {
	info, err := stdin.Stat()
	if err == nil && (info.Mode()&os.ModeCharDevice) != 0 {
		return nil, fmt.Errorf("ask request JSON must be provided via stdin (example: echo '{\"questions\":[...]}' | askctl)")
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}

	var batch types.AskRequestBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("invalid ask request JSON: %w", err)
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}

	return &batch, nil
}

// requestResolution performs one request/response cycle over the socket
func requestResolution(socketPath string, request *types.SocketRequest) (*types.ResponseBatch, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ask socket %s: %w", socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ask request: %w", err)
	}

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send ask request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("connection closed before a resolution arrived: %w", err)
	}

	var response types.ResponseBatch
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("invalid resolution payload: %w", err)
	}

	return &response, nil
}

// printResolution renders a human-readable summary
func printResolution(response *types.ResponseBatch) {
	fmt.Printf("status: %s\n", response.Status)

	for _, answer := range response.Answers {
		if answer.UsedOther && answer.OtherText != nil {
			fmt.Printf("%s: %s (%s)\n", answer.ID, answer.SelectedLabel, *answer.OtherText)
			continue
		}
		fmt.Printf("%s: %s\n", answer.ID, answer.SelectedLabel)
	}

	if response.Note != nil {
		fmt.Printf("note: %s\n", *response.Note)
	}
}

func defaultSocketPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./ask.sock"
	}
	return filepath.Join(home, ".askrelay", "runtime", "ask.sock")
}
