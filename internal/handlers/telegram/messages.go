package telegram

import (
	"fmt"
	"strings"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/pkg/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const cancelHint = "\n\n(Send /cancel to cancel this operation)"

const (
	usageAdd      = "Usage: /add user_id time (e.g. '1 day')"
	usageRem      = "Usage: /rem user_id"
	usageCheck    = "Usage: /check user_id"
	usageTransfer = "⚠️ Usage: /transfer user_id"

	msgInvalidTime = "Invalid time format. Use '1 day', '1 hour', '1 min', '1 month' or '1 year'"
	msgRemoved     = "User removed successfully!"
	msgRemoveNone  = "Unable to remove user!\nAre you sure it was a premium user ID?"
	msgCheckNone   = "No premium data found for this user!"
	msgNotPremium  = "⚠️ You are not a Premium user!"
	msgSelfTrans   = "⚠️ You cannot transfer your plan to yourself."
	msgOwnerOnly   = "This command is only available to the bot owner."
	msgPrivateOnly = "This command only works in a private chat with the bot."
	msgCancelled   = "Operation cancelled"
	msgNothing     = "No active operation to cancel."
	msgSettings    = "Customize settings for your files..."

	msgFileTooLarge = "❌ Files larger than 20 MB cannot be renamed."
)

var helpText = strings.Join([]string{
	"<b>Premium</b>",
	"/myplan - show your premium plan",
	"/transfer user_id - give your plan to another user",
	"",
	"<b>Settings</b>",
	"/settings - customize target chat, rename tag, caption and more",
	"/cancel - cancel the current settings operation",
	"",
	"<b>Owner</b>",
	"/add user_id N unit - grant premium (units: sec, min, hour, day, month, year)",
	"/rem user_id - remove premium",
	"/check user_id - show a user's plan",
	"/freez - remove expired plans now",
}, "\n")

func mention(u *domain.User) string {
	if u == nil {
		return "Unknown"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, utils.EscapeHTML(u.DisplayName()))
}

// stamp renders the date line followed by a labelled clock line.
func stamp(t time.Time, label string) string {
	return fmt.Sprintf("%s\n⏱️ %s : %s", utils.FormatDate(t), label, utils.FormatClock(t))
}

func premiumInfo(user *domain.User, status *domain.Status) string {
	return fmt.Sprintf(
		"⚜️ Premium User Data:\n\n"+
			"👤 User: %s\n"+
			"⚡ User ID: <code>%d</code>\n"+
			"⏰ Time Left: %s\n"+
			"⌛️ Expiry Date: %s",
		mention(user), status.UserID, utils.FormatRemaining(status.Remaining), stamp(status.ExpireAt, "Expiry Time"),
	)
}

func noPlan(user *domain.User) string {
	return fmt.Sprintf("Hey %s,\n\nYou do not have any active premium plans", mention(user))
}

func grantOwnerMessage(user *domain.User, g *domain.Grant) string {
	return fmt.Sprintf(
		"Premium added successfully ✅\n\n"+
			"👤 User: %s\n"+
			"⚡ User ID: <code>%d</code>\n"+
			"⏰ Premium Access: <code>%s</code>\n\n"+
			"⏳ Joining Date: %s\n\n"+
			"⌛️ Expiry Date: %s",
		mention(user), g.UserID, g.Duration, stamp(g.GrantedAt, "Joining Time"), stamp(g.ExpireAt, "Expiry Time"),
	)
}

func grantUserMessage(user *domain.User, g *domain.Grant) string {
	return fmt.Sprintf(
		"👋 Hey %s,\n"+
			"Thank you for purchasing premium.\nEnjoy!! ✨🎉\n\n"+
			"⏰ Premium Access: <code>%s</code>\n"+
			"⏳ Joining Date: %s\n\n"+
			"⌛️ Expiry Date: %s",
		mention(user), g.Duration, stamp(g.GrantedAt, "Joining Time"), stamp(g.ExpireAt, "Expiry Time"),
	)
}

func removedUserMessage(user *domain.User) string {
	return fmt.Sprintf(
		"<b>Hey %s,\n\nYour premium access has been removed.\nThank you for using our service 😊.</b>",
		mention(user),
	)
}

func transferOwnerMessage(from, to *domain.User, t *domain.Transfer) string {
	return fmt.Sprintf(
		"✅ Premium Plan Transferred Successfully!\n\n"+
			"👤 From: %s\n"+
			"👤 To: %s\n"+
			"⏳ Expiry Date: %s",
		mention(from), mention(to), stamp(t.ExpireAt, "Expiry Time"),
	)
}

func transferTargetMessage(from, to *domain.User, t *domain.Transfer) string {
	return fmt.Sprintf(
		"👋 Hey %s,\n\n"+
			"🎉 Your Premium Plan has been Transferred!\n"+
			"🛡️ Transferred From: %s\n\n"+
			"⏳ Expiry Date: %s\n"+
			"📅 Transferred On: %s\n\n"+
			"<i>Enjoy the Service!</i> ✨",
		mention(to), mention(from), stamp(t.ExpireAt, "Expiry Time"), stamp(t.TransferredAt, "Transfer Time"),
	)
}

func expiredNotice(name string) string {
	return fmt.Sprintf("Hello %s, your premium subscription has expired.", utils.EscapeHTML(name))
}

func labelList(entries []domain.SweepEntry) string {
	if len(entries) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, utils.EscapeHTML(e.Label))
	}
	return strings.Join(lines, "\n")
}

func sweepSummary(report *domain.SweepReport) string {
	return fmt.Sprintf(
		"<b>Premium Users Cleanup Summary</b>\n\n"+
			"<b>Removed Users:</b>\n%s\n\n"+
			"<b>Active Users:</b>\n%s",
		labelList(report.Removed), labelList(report.StillActive),
	)
}

func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	button := func(text string, a domain.Action) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(text, a.CallbackData())
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("Set Chat ID", domain.ActionSetChat), button("Set Rename Tag", domain.ActionSetRename)),
		tgbotapi.NewInlineKeyboardRow(button("Caption", domain.ActionSetCaption), button("Replace Words", domain.ActionSetReplacement)),
		tgbotapi.NewInlineKeyboardRow(button("Remove Words", domain.ActionDeleteWords), button("Reset", domain.ActionReset)),
		tgbotapi.NewInlineKeyboardRow(button("Session Login", domain.ActionAddSession), button("Logout", domain.ActionLogout)),
		tgbotapi.NewInlineKeyboardRow(button("Set Thumbnail", domain.ActionSetThumbnail), button("Remove Thumbnail", domain.ActionRemoveThumbnail)),
	)
}

// prompt is the question asked when a conversational action starts.
func prompt(a domain.Action) string {
	var text string
	switch a {
	case domain.ActionSetChat:
		text = "Send me the ID of that chat(with -100 prefix):\n\n" +
			"<b>👉 Note:</b> if you are using a custom bot then your bot should be admin of that chat, " +
			"if not then this bot should be admin.\n" +
			"👉 <b>If you want to upload in a topic group and in a specific topic then pass chat id as " +
			"<code>-100CHANNELID/TOPIC_ID</code>, for example: <code>-1004783898/12</code></b>"
	case domain.ActionSetRename:
		text = "Send me the rename tag:"
	case domain.ActionSetCaption:
		text = "Send me the caption:"
	case domain.ActionSetReplacement:
		text = "Send me the replacement words in the format: 'WORD(s)' 'REPLACEWORD'"
	case domain.ActionAddSession:
		text = "Send Pyrogram V2 session string:"
	case domain.ActionDeleteWords:
		text = "Send words separated by space to delete them from caption/filename..."
	case domain.ActionSetThumbnail:
		text = "Please send the photo you want to set as the thumbnail."
	case domain.ActionLogout, domain.ActionReset, domain.ActionRemoveThumbnail, domain.ActionUnknown:
		return ""
	}
	return text + cancelHint
}
