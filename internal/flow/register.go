package flow

import (
	"context"
	"errors"
	"fmt"

	"tipbot-go/internal/store"

	"go.uber.org/zap"
)

func (e *Engine) commandRegister(ctx context.Context, t translator, ev Event, _ []string) Reply {
	if err := e.ensureUser(ctx, ev); err != nil {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}

	address, err := e.store.GetUserWallet(ctx, ev.UserId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.failAndClear(ev.UserId, t, "error_generic", err)
	}
	if address != "" {
		return Reply{Text: t("wallet_already_exists")}
	}

	e.sessions.put(ev.UserId, session{flow: FlowRegistration, state: StateAwaitingConfirmation})
	return Reply{
		Text:    t("register_confirmation"),
		Actions: confirmActions(t, "confirm_registration", "cancel_registration"),
	}
}

// handleRegistrationDecision resolves the confirmation step. Key material
// is generated only after an explicit confirm; cancelling leaves no trace.
func (e *Engine) handleRegistrationDecision(ctx context.Context, t translator, ev Event, _ session) Reply {
	switch ev.Payload {
	case "confirm_registration":
		// Re-check under the confirmation: a second device may have
		// registered between prompt and press.
		address, err := e.store.GetUserWallet(ctx, ev.UserId)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return e.failAndClear(ev.UserId, t, "wallet_creation_error", err)
		}
		if address != "" {
			e.sessions.clear(ev.UserId)
			return Reply{Text: t("wallet_already_exists")}
		}

		newAddress, privateKeyHex, err := e.custody.CreateWallet()
		if err != nil {
			return e.failAndClear(ev.UserId, t, "wallet_creation_error", err)
		}
		if err := e.custody.StoreWallet(ctx, ev.UserId, newAddress, privateKeyHex); err != nil {
			return e.failAndClear(ev.UserId, t, "wallet_creation_error", err)
		}

		zap.L().Info("Wallet created",
			zap.Int64("user_id", ev.UserId),
			zap.String("address", newAddress))

		e.sessions.clear(ev.UserId)
		text := fmt.Sprintf(t("wallet_created"), newAddress)
		return Reply{Text: text + "\n\n" + t("private_key_warning")}

	case "cancel_registration":
		e.sessions.clear(ev.UserId)
		return Reply{Text: t("registration_cancelled")}

	default:
		return Reply{Text: t("invalid_input")}
	}
}

// ensureUser upserts the account row from the event's identity fields so
// later lookups by id or username succeed.
func (e *Engine) ensureUser(ctx context.Context, ev Event) error {
	_, err := e.store.CreateUserIfNotExists(ctx, store.CreateUserParams{
		UserId:    ev.UserId,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
	})
	return err
}
