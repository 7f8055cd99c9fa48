package i18n

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Catalog resolves user-facing text by language and key. It is a pure
// lookup: missing entries fall back to the default language, then to the
// key itself so a missing translation is visible rather than fatal.
type Catalog struct {
	defaultLang string
	messages    map[string]map[string]string
}

// NewCatalog builds a catalog from an in-memory message table, overlaid
// on the built-in English set.
func NewCatalog(defaultLang string, messages map[string]map[string]string) *Catalog {
	merged := map[string]map[string]string{"en": builtinEnglish()}
	for lang, table := range messages {
		if merged[lang] == nil {
			merged[lang] = make(map[string]string)
		}
		for key, text := range table {
			merged[lang][key] = text
		}
	}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Catalog{defaultLang: defaultLang, messages: merged}
}

// Load reads a YAML locales file shaped as lang -> key -> text. An empty
// path yields the built-in English catalog.
func Load(path, defaultLang string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(defaultLang, nil), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read locales file: %w", err)
	}

	var messages map[string]map[string]string
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("unable to parse locales file %s: %w", path, err)
	}

	zap.L().Info("Locales loaded", zap.String("file", path), zap.Int("languages", len(messages)))
	return NewCatalog(defaultLang, messages), nil
}

// Lookup returns the message text for (lang, key).
func (c *Catalog) Lookup(lang, key string) string {
	if table, ok := c.messages[lang]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	if table, ok := c.messages[c.defaultLang]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	return key
}

// Languages lists the language codes the catalog can serve.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	return langs
}

func builtinEnglish() map[string]string {
	return map[string]string{
		"invalid_input":           "Sorry, I didn't understand that. Use /help to see what I can do.",
		"error_generic":           "Something went wrong. Please try again.",
		"welcome_message":         "Welcome, %s! Use /register to create your wallet.",
		"language_selected":       "Language set to %s.",
		"unknown_language":        "That language is not available.",
		"help_message":            "Commands:\n/register — create a wallet\n/balance — show your balance\n/tip @user amount — tip another user\n/wallet — wallet menu\n/transactions — recent activity\n/referral — referral stats",
		"confirm":                 "Confirm",
		"cancel":                  "Cancel",
		"deposit":                 "Deposit",
		"withdraw":                "Withdraw",
		"no_wallet":               "You don't have a wallet yet. Use /register to create one.",
		"wallet_already_exists":   "You already have a wallet.",
		"register_confirmation":   "Create a new custodial wallet for your account?",
		"wallet_created":          "Your wallet is ready.\nAddress: %s",
		"private_key_warning":     "Your key is held encrypted by the service. Never share withdrawal confirmations with anyone.",
		"registration_cancelled":  "Registration cancelled.",
		"wallet_creation_error":   "Could not create your wallet. Please try again.",
		"tip_usage":               "Usage: /tip @username amount",
		"tip_amount_prompt":       "How much would you like to tip?",
		"user_not_found":          "That user hasn't started the bot yet.",
		"invalid_user_id":         "That doesn't look like a valid user.",
		"cannot_tip_yourself":     "You can't tip yourself.",
		"cannot_tip_bot":          "You can't tip the bot.",
		"invalid_amount":          "That doesn't look like a valid amount.",
		"tip_amount_too_low":      "Tip amount is below the minimum of %s.",
		"tip_amount_too_high":     "Tip amount is above the maximum of %s.",
		"recipient_no_wallet":     "The recipient doesn't have a wallet yet.",
		"insufficient_balance":    "Insufficient balance: you have %s.",
		"confirm_tip":             "Send %s tokens to %s?",
		"tip_success":             "Sent %s tokens to %s.\nTransaction: %s",
		"tip_cancelled":           "Tip cancelled.",
		"tip_error":               "The tip could not be completed.",
		"transaction_already_processed": "This transfer was already processed.",
		"balance_info":            "Your balance: %s tokens",
		"wallet_info":             "Wallet %s\nBalance: %s tokens",
		"deposit_instructions":    "Send tokens to your address:\n%s\nToken contract: %s",
		"withdraw_address_prompt": "Send the destination address (0x...).",
		"invalid_address_format":  "That address is not valid. Expected a 0x-prefixed 40-hex-character address.",
		"withdraw_amount_prompt":  "Available: %s. How much would you like to withdraw?",
		"amount_must_be_positive": "The amount must be positive.",
		"insufficient_balance_withdraw": "Amount exceeds your available balance of %s.",
		"withdraw_confirmation":   "Withdraw %s tokens to %s?",
		"withdraw_success":        "Withdrew %s tokens to %s.\nTransaction: %s",
		"withdraw_cancelled":      "Withdrawal cancelled.",
		"withdraw_error":          "The withdrawal could not be completed.",
		"transaction_history":     "Recent transactions:",
		"no_transactions":         "No transactions yet.",
		"outgoing_tip":            "- %s tokens to %s (%s)",
		"incoming_tip":            "+ %s tokens from %s (%s)",
		"deposit_tx":              "+ %s tokens deposited (%s)",
		"withdraw_tx":             "- %s tokens withdrawn to %s (%s)",
		"referral_info":           "You have referred %d users, earning %s bonus tokens.",
	}
}
