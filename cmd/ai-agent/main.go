package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/confidential-dex/internal/ai"
	"github.com/aman-zulfiqar/confidential-dex/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const help = `Commands:
  :examples        list example questions (pick one by typing its number)
  :schema          show the transactions table
  :wallet <addr>   only look at one wallet's transactions
  :wallet          drop the wallet filter
  :help            show this help
  :quit            exit (an empty line works too)`

func main() {
	question := flag.String("q", "", "ask one question and exit")
	model := flag.String("model", "", "OpenRouter model (default AI_MODEL)")
	wallet := flag.String("wallet", "", "limit questions to one wallet address")
	examples := flag.Bool("examples", false, "print example questions and exit")
	flag.Parse()

	if *examples {
		printExamples(os.Stdout, *wallet != "")
		return
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if cfg.OpenRouterAPIKey == "" || cfg.ClickHouseAddr == "" {
		logger.Fatal("OPENROUTER_API_KEY and CLICKHOUSE_ADDR must both be set")
	}
	if *model == "" {
		*model = cfg.AIModel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              *model,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to start analytics agent")
	}
	defer agent.Close()

	s := &session{agent: agent, wallet: *wallet, out: os.Stdout}
	if *question != "" {
		if err := s.ask(ctx, *question); err != nil {
			logger.WithError(err).Fatal("question failed")
		}
		return
	}
	s.repl(ctx, os.Stdin)
}

// session holds REPL state: the agent, the wallet filter and the examples
// last shown.
type session struct {
	agent  *ai.Agent
	wallet string
	out    io.Writer
	shown  []string
}

func (s *session) repl(ctx context.Context, in io.Reader) {
	fmt.Fprintln(s.out, "Confidential DEX analytics. Ask about swaps, pools, liquidity and volume.")
	fmt.Fprintln(s.out, "Type :help for commands.")
	s.prompt()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line == ":quit":
			fmt.Fprintln(s.out, "bye")
			return
		case line == ":help":
			fmt.Fprintln(s.out, help)
		case line == ":schema":
			fmt.Fprintln(s.out, s.agent.Schema())
		case line == ":examples":
			s.shown = printExamples(s.out, s.wallet != "")
		case line == ":wallet" || strings.HasPrefix(line, ":wallet "):
			s.wallet = strings.TrimSpace(strings.TrimPrefix(line, ":wallet"))
		default:
			q := line
			if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(s.shown) {
				q = s.shown[n-1]
				fmt.Fprintf(s.out, "%s\n", q)
			}
			if err := s.ask(ctx, q); err != nil {
				fmt.Fprintln(s.out, "error:", err)
			}
		}
		s.prompt()
	}
}

func (s *session) prompt() {
	if s.wallet != "" {
		fmt.Fprintf(s.out, "[%s]> ", s.wallet)
		return
	}
	fmt.Fprint(s.out, "> ")
}

func (s *session) ask(ctx context.Context, q string) error {
	res, err := s.agent.AskQuestion(ctx, ai.Question{Text: q, Wallet: s.wallet})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "\nSQL (%d rows):\n%s\n\n%s\n\n", res.Rows, res.SQL, res.Answer)
	return nil
}

// printExamples prints numbered examples and returns them in that order.
func printExamples(w io.Writer, scoped bool) []string {
	list := ai.ExampleQuestions
	if scoped {
		list = ai.WalletQuestions
	}
	for i, q := range list {
		fmt.Fprintf(w, "%2d. %s\n", i+1, q)
	}
	return list
}
