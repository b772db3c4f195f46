package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/urfave/cli/v2"
	httpservice "github.com/waveportal/waved/internal/interface/http"
)

const walletUnavailableAlert = "Get a wallet!"

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "the url of the waved daemon",
		Value:   "http://localhost:7070",
		EnvVars: []string{"WAVE_URL"},
	}
	messageFlag = &cli.StringFlag{
		Name:  "message",
		Usage: "the message to send along with the wave",
	}
)

// commands
var (
	sessionCmd = &cli.Command{
		Name:   "session",
		Usage:  "Get info about the wallet session",
		Action: sessionAction,
	}
	connectCmd = &cli.Command{
		Name:   "connect",
		Usage:  "Ask the wallet for access to an account",
		Action: connectAction,
	}
	waveCmd = &cli.Command{
		Name:   "wave",
		Usage:  "Send a wave and wait for it to be mined",
		Action: waveAction,
		Flags:  []cli.Flag{messageFlag},
	}
	countCmd = &cli.Command{
		Name:   "count",
		Usage:  "Show the total number of waves",
		Action: countAction,
	}
	listCmd = &cli.Command{
		Name:   "list",
		Usage:  "List all waves",
		Action: listAction,
	}
	submissionsCmd = &cli.Command{
		Name:   "submissions",
		Usage:  "List the waves sent in this session",
		Action: submissionsAction,
	}
	watchCmd = &cli.Command{
		Name:   "watch",
		Usage:  "Print new waves as they are mined",
		Action: watchAction,
	}
)

func sessionAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/session", ctx.String("url"))
	session, err := get[httpservice.SessionResponse](url)
	if err != nil {
		return err
	}

	if !session.WalletPresent {
		fmt.Println("wallet: not found")
		return nil
	}
	if !session.Connected {
		fmt.Println("wallet: found, not connected")
		return nil
	}
	fmt.Printf("wallet: connected as %s\n", session.Address)
	return nil
}

func connectAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/session/connect", ctx.String("url"))
	resp, err := post[httpservice.ConnectResponse](url, "")
	if err != nil {
		if isWalletUnavailable(err) {
			fmt.Println(walletUnavailableAlert)
			return nil
		}
		return err
	}

	fmt.Printf("Connected %s\n", resp.Address)
	return nil
}

func waveAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/waves", ctx.String("url"))
	body, err := json.Marshal(httpservice.SubmitWaveRequest{
		Message: ctx.String("message"),
	})
	if err != nil {
		return err
	}

	resp, err := post[httpservice.SubmitWaveResponse](url, string(body))
	if err != nil {
		if isWalletUnavailable(err) {
			return nil
		}
		return err
	}

	fmt.Printf("Mined -- %s\n", resp.Submission.TxHash)
	return nil
}

func countAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/waves/count", ctx.String("url"))
	resp, err := get[httpservice.TotalWavesResponse](url)
	if err != nil {
		if isWalletUnavailable(err) {
			fmt.Println(walletUnavailableAlert)
			return nil
		}
		return err
	}

	fmt.Printf("Total Waves: %d\n", resp.Total)
	return nil
}

func listAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/waves", ctx.String("url"))
	resp, err := get[httpservice.ListWavesResponse](url)
	if err != nil {
		return err
	}

	for _, w := range resp.Waves {
		printWave(w)
	}
	return nil
}

func submissionsAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/waves/submissions", ctx.String("url"))
	resp, err := get[httpservice.ListSubmissionsResponse](url)
	if err != nil {
		return err
	}

	fmt.Printf("state: %s (%d in flight)\n", resp.State, resp.InFlight)
	for _, s := range resp.Submissions {
		line := fmt.Sprintf("%s  %-7s  %q", s.CreatedAt, s.Status, s.Message)
		if len(s.TxHash) > 0 {
			line += "  " + s.TxHash
		}
		if len(s.Error) > 0 {
			line += "  " + s.Error
		}
		fmt.Println(line)
	}
	return nil
}

func watchAction(ctx *cli.Context) error {
	baseURL := ctx.String("url")
	url := fmt.Sprintf(
		"%s/v1/waves/stream", strings.Replace(baseURL, "http", "ws", 1),
	)

	sigCtx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	conn, _, err := websocket.Dial(sigCtx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %s", url, err)
	}
	// nolint:all
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(sigCtx)
		if err != nil {
			if sigCtx.Err() != nil {
				// nolint:all
				conn.Close(websocket.StatusNormalClosure, "bye")
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusGoingAway {
				fmt.Println("daemon is shutting down")
				return nil
			}
			return err
		}

		var w httpservice.WaveResponse
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("failed to parse wave: %s", err)
		}
		printWave(w)
	}
}

func printWave(w httpservice.WaveResponse) {
	fmt.Printf("Sender's Address: %s\n", w.Address)
	fmt.Printf("Message: %s\n", w.Message)
	fmt.Printf("Time: %s\n\n", w.Timestamp)
}

func isWalletUnavailable(err error) bool {
	var httpErr *httpError
	return errors.As(err, &httpErr) && httpErr.status == http.StatusServiceUnavailable
}
