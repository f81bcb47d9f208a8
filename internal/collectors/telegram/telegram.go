package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"proxyscraper/internal/collectors"
	"proxyscraper/internal/logger"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"golang.org/x/net/proxy"
)

// TelegramCollector logs in as a user and returns the text of recent
// messages from the configured chats, one document per message.
type TelegramCollector struct{}

type options struct {
	apiID       int
	apiHash     string
	limit       int
	sessionFile string
	chats       []int64
	proxyURL    string
}

func parseOptions(config map[string]interface{}) (options, error) {
	opts := options{
		apiID:       collectors.Int(config, "api_id", 0),
		apiHash:     collectors.String(config, "api_hash"),
		limit:       collectors.Int(config, "limit", 500),
		sessionFile: collectors.String(config, "session_file"),
		proxyURL:    collectors.String(config, "_proxy_url"),
	}
	if opts.sessionFile == "" {
		opts.sessionFile = "telegram.session"
	}

	// Chat IDs can be mixed types in YAML
	if chats, ok := config["chats"].([]interface{}); ok {
		for _, chat := range chats {
			switch id := chat.(type) {
			case int:
				opts.chats = append(opts.chats, int64(id))
			case int64:
				opts.chats = append(opts.chats, id)
			}
		}
	}

	if opts.apiID == 0 || opts.apiHash == "" {
		return opts, fmt.Errorf("missing api_id or api_hash")
	}
	if len(opts.chats) == 0 {
		return opts, fmt.Errorf("missing 'chats' in collector config")
	}
	return opts, nil
}

func dialerFor(proxyURL string) proxy.Dialer {
	if proxyURL == "" {
		return proxy.Direct
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		logger.Log.Warnf("Ignoring invalid proxy url %q: %v", proxyURL, err)
		return proxy.Direct
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		logger.Log.Warnf("Ignoring unsupported proxy url %q: %v", proxyURL, err)
		return proxy.Direct
	}
	logger.Log.Infof("Telegram using proxy: %s", proxyURL)
	return d
}

func (c *TelegramCollector) Collect(ctx context.Context, config map[string]interface{}) ([]string, error) {
	opts, err := parseOptions(config)
	if err != nil {
		return nil, err
	}

	dialer := dialerFor(opts.proxyURL)
	if dir := filepath.Dir(opts.sessionFile); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0700)
	}

	client := telegram.NewClient(opts.apiID, opts.apiHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: opts.sessionFile},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}),
	})

	var docs []string
	err = client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(newTermAuth(os.Stdin), auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		logger.Log.Info("🔓 Telegram Login Successful")

		api := client.API()
		peers, err := resolvePeers(ctx, api)
		if err != nil {
			return err
		}

		for _, chatID := range opts.chats {
			peer, found := peers[chatID]
			if !found {
				logger.Log.Warnf("Could not resolve chat ID %d (User not joined or not in recent dialogs)", chatID)
				continue
			}
			logger.Log.Infof("📥 Reading Chat ID: %d (Limit: %d)...", chatID, opts.limit)
			texts := fetchHistory(ctx, api, peer, opts.limit)
			logger.Log.Infof("    ↳ Got %d messages with text.", len(texts))
			docs = append(docs, texts...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// resolvePeers maps chat IDs, in both the bare and the Bot API (-100...)
// notation, to input peers using the recent dialog list.
func resolvePeers(ctx context.Context, api *tg.Client) (map[int64]tg.InputPeerClass, error) {
	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	}

	peers := make(map[int64]tg.InputPeerClass)
	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Channel:
			p := &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
			peers[c.ID] = p
			peers[channelBotID(c.ID)] = p
		case *tg.Chat:
			p := &tg.InputPeerChat{ChatID: c.ID}
			peers[c.ID] = p
			peers[-c.ID] = p
		}
	}
	return peers, nil
}

// fetchHistory pages backwards through a chat, at most 100 messages per
// request, and returns the non-empty message texts.
func fetchHistory(ctx context.Context, api *tg.Client, peer tg.InputPeerClass, limit int) []string {
	var texts []string
	fetched, offsetID := 0, 0
	for fetched < limit {
		batch := limit - fetched
		if batch > 100 {
			batch = 100
		}

		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			Limit:    batch,
			OffsetID: offsetID,
		})
		if err != nil {
			logger.Log.Errorf("Failed to fetch history batch: %v", err)
			break
		}

		messages := historyMessages(history)
		if len(messages) == 0 {
			break
		}
		for _, msg := range messages {
			m, ok := msg.(*tg.Message)
			if !ok {
				continue
			}
			if m.Message != "" {
				texts = append(texts, m.Message)
			}
			if offsetID == 0 || m.ID < offsetID {
				offsetID = m.ID
			}
		}
		fetched += len(messages)
	}
	return texts
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	}
	return nil
}

func channelBotID(id int64) int64 { return -1000000000000 - id }

// termAuth prompts for login details on the terminal.
type termAuth struct {
	in *bufio.Reader
}

func newTermAuth(r io.Reader) termAuth {
	return termAuth{in: bufio.NewReader(r)}
}

func (a termAuth) prompt(label string) string {
	fmt.Print(label)
	text, _ := a.in.ReadString('\n')
	return strings.TrimSpace(text)
}

func (a termAuth) Phone(_ context.Context) (string, error) {
	return a.prompt("📞 Enter Phone Number: "), nil
}

func (a termAuth) Password(_ context.Context) (string, error) {
	return a.prompt("🔐 Enter 2FA Password: "), nil
}

func (a termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompt("📩 Enter Code: "), nil
}

func (a termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{
		FirstName: a.prompt("👤 Enter First Name: "),
		LastName:  a.prompt("👤 Enter Last Name: "),
	}, nil
}

func (termAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return nil
}

func init() {
	collectors.Register("telegram", func() collectors.Collector {
		return &TelegramCollector{}
	})
}
