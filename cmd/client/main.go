package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/cbodonnell/wordchain/pkg/client"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:12345", "Server address")
	name := flag.String("name", "", "Register with this name on connect")
	avatar := flag.String("avatar", "default.png", "Avatar file sent with -name")
	logLevel := flag.String("log-level", "error", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stderr, log.FormatConsole, parsedLogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Dial(ctx, *serverAddr)
	if err != nil {
		fmt.Println("Error connecting to server:", err)
		return
	}
	defer c.Close()

	if *name != "" {
		if err := c.Register(*name, *avatar); err != nil {
			fmt.Println("Error registering:", err)
			return
		}
	}

	// the cycle of our last turn result, sent back with submissions
	var cycle atomic.Int64
	cycle.Store(1)
	go func() {
		for line := range c.Lines() {
			fmt.Println("Server:", line)
			if !strings.HasPrefix(line, "{") {
				continue
			}
			if result, err := messages.DecodeTurnResult(line); err == nil {
				if n, err := strconv.Atoi(string(result.Cycle)); err == nil {
					cycle.Store(int64(n))
				}
			}
		}
		fmt.Println("Server disconnected.")
		cancel()
	}()

	go func() {
		fmt.Println("Commands: REGISTER <name> <avatar>, START, CHAT <text>, /word <word>, exit")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			var err error
			switch {
			case input == "exit":
				fmt.Println("Received exit command, exiting.")
				cancel()
				return
			case strings.HasPrefix(input, "/word "):
				err = c.Submit(strings.TrimSpace(strings.TrimPrefix(input, "/word ")), int(cycle.Load()))
			default:
				err = c.Send(input)
			}
			if err != nil {
				fmt.Println("Error sending message to server:", err)
				cancel()
				return
			}
		}
		cancel()
	}()

	// Gracefully handle Ctrl+C to stop the program
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopSignal:
		fmt.Println("Received stop signal, exiting.")
	case <-ctx.Done():
	}

	fmt.Println("Exiting client.")
}
