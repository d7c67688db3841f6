package command

import (
	"context"
	"log/slog"
	"strings"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/messages"
)

// Command names and their aliases.
const (
	CommandDiscord  = "discord"
	CommandRegister = "register"
	aliasLink       = "link"
	aliasConfirm    = "confirm"
)

// Sender issued a command. Only interactive senders (players) may link.
type Sender interface {
	Name() string
	Interactive() bool
}

// Player is an interactive Sender.
type Player string

func (p Player) Name() string      { return string(p) }
func (p Player) Interactive() bool { return true }

// Console is the non-interactive server console.
type Console struct{}

func (Console) Name() string      { return "CONSOLE" }
func (Console) Interactive() bool { return false }

// Linker is the part of *goLink.Engine the dispatcher needs.
type Linker interface {
	InitiateLinking(ctx context.Context, requestingAccount, externalAccountID string) (goLink.InitiateResult, error)
	ConfirmLinking(ctx context.Context, confirmingAccount, code string) (goLink.ConfirmResult, error)
}

// Reply is what the host shows the sender. Key is the message key Text was
// rendered from.
type Reply struct {
	OK   bool
	Key  string
	Text string
}

type Dispatcher struct {
	linker   Linker
	messages goLink.MessageProvider
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher. A nil provider uses messages.Default,
// a nil logger discards.
func NewDispatcher(linker Linker, provider goLink.MessageProvider, logger *slog.Logger) *Dispatcher {
	if provider == nil {
		provider = messages.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		linker:   linker,
		messages: provider,
		logger:   logger,
	}
}

// Handle runs one command. name is matched case-insensitively.
func (d *Dispatcher) Handle(ctx context.Context, sender Sender, name string, args []string) Reply {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CommandDiscord, aliasLink:
		return d.discord(ctx, sender, args)
	case CommandRegister, aliasConfirm:
		return d.register(ctx, sender, args)
	default:
		return d.reply(false, messages.KeyUnknownCommand, sender, "")
	}
}

func (d *Dispatcher) discord(ctx context.Context, sender Sender, args []string) Reply {
	if sender == nil || !sender.Interactive() {
		return d.reply(false, messages.KeyOnlyInGame, sender, "")
	}
	if len(args) != 1 {
		return d.reply(false, messages.KeyDiscordUsage, sender, "")
	}

	externalID := args[0]
	result, err := d.linker.InitiateLinking(ctx, sender.Name(), externalID)
	if err != nil {
		return d.failure(ctx, "discord", sender, externalID, err)
	}
	if !result.Delivered {
		d.logger.WarnContext(ctx, "verification code not delivered", "player", sender.Name(), "request_id", result.RequestID)
	}
	return d.reply(true, messages.KeyVerificationSent, sender, externalID)
}

func (d *Dispatcher) register(ctx context.Context, sender Sender, args []string) Reply {
	if sender == nil || !sender.Interactive() {
		return d.reply(false, messages.KeyOnlyInGame, sender, "")
	}
	if len(args) != 1 {
		return d.reply(false, messages.KeyRegisterUsage, sender, "")
	}

	result, err := d.linker.ConfirmLinking(ctx, sender.Name(), args[0])
	if err != nil {
		return d.failure(ctx, "register", sender, "", err)
	}
	return d.reply(true, messages.KeyRegistrationSuccess, sender, result.ExternalAccountID)
}

func (d *Dispatcher) failure(ctx context.Context, cmd string, sender Sender, externalID string, err error) Reply {
	key := goLink.MessageKey(err)
	if key == messages.KeyInternalError {
		d.logger.ErrorContext(ctx, "command failed", "command", cmd, "player", sender.Name(), "error", err)
	} else {
		d.logger.DebugContext(ctx, "command rejected", "command", cmd, "player", sender.Name(), "reason", key)
	}
	return d.reply(false, key, sender, externalID)
}

func (d *Dispatcher) reply(ok bool, key string, sender Sender, externalID string) Reply {
	var name string
	if sender != nil {
		name = sender.Name()
	}
	text := messages.Render(d.messages.Message(key),
		goLink.PlaceholderPlayer, name,
		goLink.PlaceholderPlayerName, name,
		goLink.PlaceholderExternalID, externalID,
	)
	return Reply{OK: ok, Key: key, Text: text}
}
