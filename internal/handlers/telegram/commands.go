package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mirrorbot/internal/core/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) cmdHelp(_ context.Context, _ *tgbotapi.Message) (reply, error) {
	return textReply(helpText), nil
}

// cmdAdd handles "/add user_id N unit".
func (h *Handler) cmdAdd(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return textReply(usageAdd), nil
	}
	userID, err := domain.ParseUserID(args[0])
	if err != nil {
		return textReply(usageAdd), nil
	}
	expr, err := domain.ParseDurationExpression(args[1], args[2])
	if err != nil {
		return reply{}, err
	}

	grant, err := h.entitlements.Grant(ctx, userID, expr)
	if err != nil {
		return reply{}, err
	}

	user := h.lookupUser(ctx, userID)
	h.notify(ctx, "grant", userID, grantUserMessage(user, grant))
	return textReply(grantOwnerMessage(user, grant)), nil
}

func (h *Handler) cmdRemove(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return textReply(usageRem), nil
	}
	userID, err := domain.ParseUserID(args[0])
	if err != nil {
		return textReply(usageRem), nil
	}

	if err := h.entitlements.Remove(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotEntitled) {
			return textReply(msgRemoveNone), nil
		}
		return reply{}, err
	}

	h.notify(ctx, "removal", userID, removedUserMessage(h.lookupUser(ctx, userID)))
	return textReply(msgRemoved), nil
}

func (h *Handler) cmdCheck(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return textReply(usageCheck), nil
	}
	userID, err := domain.ParseUserID(args[0])
	if err != nil {
		return textReply(usageCheck), nil
	}

	status, err := h.entitlements.Query(ctx, userID)
	if err != nil {
		return reply{}, err
	}
	if !status.Active {
		return textReply(msgCheckNone), nil
	}
	return textReply(premiumInfo(h.lookupUser(ctx, userID), status)), nil
}

func (h *Handler) cmdMyPlan(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	user := userFromTelegram(msg.From)
	status, err := h.entitlements.Query(ctx, user.ID)
	if err != nil {
		return reply{}, err
	}
	if !status.Active {
		return textReply(noPlan(user)), nil
	}
	return textReply(premiumInfo(user, status)), nil
}

func (h *Handler) cmdTransfer(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return textReply(usageTransfer), nil
	}
	to, err := domain.ParseUserID(args[0])
	if err != nil {
		return textReply(usageTransfer), nil
	}

	from := userFromTelegram(msg.From)
	transfer, err := h.entitlements.Transfer(ctx, from.ID, to)
	switch {
	case errors.Is(err, domain.ErrNotEntitled):
		return textReply(msgNotPremium), nil
	case err != nil:
		return reply{}, err
	}

	target := h.lookupUser(ctx, to)
	h.notify(ctx, "transfer", to, transferTargetMessage(from, target, transfer))
	return textReply(transferOwnerMessage(from, target, transfer)), nil
}

// cmdFreeze runs the expiry sweep synchronously and answers with its summary.
func (h *Handler) cmdFreeze(ctx context.Context, _ *tgbotapi.Message) (reply, error) {
	report, err := h.sweeper.Sweep(ctx)
	if err != nil {
		return reply{}, fmt.Errorf("failed to sweep: %w", err)
	}
	return textReply(sweepSummary(report)), nil
}

func (h *Handler) cmdSettings(_ context.Context, _ *tgbotapi.Message) (reply, error) {
	kb := settingsKeyboard()
	return reply{text: msgSettings, keyboard: &kb}, nil
}

func (h *Handler) cmdCancel(ctx context.Context, msg *tgbotapi.Message) (reply, error) {
	cancelled, err := h.conversations.Cancel(ctx, domain.UserID(msg.From.ID))
	if err != nil {
		return reply{}, err
	}
	if !cancelled {
		return textReply(msgNothing), nil
	}
	return textReply(msgCancelled), nil
}
