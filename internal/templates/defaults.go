package templates

// Defaults returns a fresh copy of the shipped template set. The key set
// here is the closed universe of editable messages.
func Defaults() map[string]Template {
	return map[string]Template{
		"welcome_admin": {
			Text: "Operator panel.\n\n" +
				"User messages are forwarded to you here. Reply from chat with\n" +
				"DisplayName: your reply\n" +
				"or\n" +
				"anon_12345678: your reply\n\n" +
				"Commands:\n" +
				"/help - show this message\n" +
				"/block anon_12345678 - block a user\n" +
				"/unblock anon_12345678 - unblock a user\n" +
				"/templates - list editable templates\n\n" +
				"The web dashboard shows every conversation and can send replies too.",
			Description: "Welcome message shown to the operator",
		},
		"welcome_user": {
			Text: "Anonymous relay.\n\n" +
				"Messages you send here are forwarded without revealing who you are.\n" +
				"First, pick a display name. It is shown in place of your identity;\n" +
				"your real account stays hidden.\n\n" +
				"Send me the display name you want:",
			Description: "Welcome message for new users",
		},
		"welcome_back": {
			Text: "Welcome back, {display_name}!\n\n" +
				"Anything you send here is forwarded anonymously under your display name.\n" +
				"Use /changename to pick a different one.",
			Description: "Welcome message for returning users",
		},
		"name_prompt": {
			Text:        "Send me your new display name:",
			Description: "Prompt asking for a display name",
		},
		"name_too_long": {
			Text:        "That display name is too long. Pick one with 50 characters or fewer:",
			Description: "Warning for an over-long display name",
		},
		"name_empty": {
			Text:        "A display name cannot be empty. Pick a display name:",
			Description: "Warning for an empty display name",
		},
		"name_taken": {
			Text:        "That display name is already taken. Pick a different one:",
			Description: "Warning for a display name collision",
		},
		"name_ambiguous": {
			Text:        "More than one user matches \"{identifier}\". Reply with their anon_ id instead.",
			Description: "Operator notice for an ambiguous display name",
		},
		"name_set_success": {
			Text: "Your display name is now: {display_name}\n\n" +
				"You can send anonymous messages now. Use /changename any time to change it.",
			Description: "Confirmation after a display name is accepted",
		},
		"message_sent": {
			Text:        "Your anonymous message was sent.",
			Description: "Confirmation after a message is forwarded",
		},
		"photo_sent": {
			Text:        "Your photo was sent anonymously.",
			Description: "Confirmation after a photo is forwarded",
		},
		"send_error": {
			Text:        "Sorry, your message could not be sent. Try again later.",
			Description: "Error notice when forwarding fails",
		},
		"photo_error": {
			Text:        "Sorry, your photo could not be sent. Try again later.",
			Description: "Error notice when photo forwarding fails",
		},
		"set_name_first": {
			Text:        "Set your display name first with /start.",
			Description: "Reminder to set a display name before messaging",
		},
		"set_name_for_photo": {
			Text:        "Send your display name as text first, then the photo.",
			Description: "Reminder to set a display name before sending media",
		},
		"start_first": {
			Text:        "Use /start first to set up your display name.",
			Description: "Reminder to run /start",
		},
		"user_blocked": {
			Text:        "User {pseudonym} is now blocked.",
			Description: "Operator confirmation after blocking",
		},
		"user_unblocked": {
			Text:        "User {pseudonym} is now unblocked.",
			Description: "Operator confirmation after unblocking",
		},
		"reply_sent": {
			Text:        "Reply delivered to {display_name}.",
			Description: "Operator confirmation after a reply is delivered",
		},
		"reply_failed": {
			Text:        "Delivery to {identifier} failed. The reply was logged; try again.",
			Description: "Operator notice when reply delivery fails",
		},
		"user_not_found": {
			Text:        "No user matches \"{identifier}\".",
			Description: "Operator notice for an unknown identifier",
		},
		"reply_format_help": {
			Text: "To reply from chat, use one of:\n" +
				"DisplayName: your reply here\n" +
				"anon_12345678: your reply here\n\n" +
				"Copy the name or id from the forwarded message.",
			Description: "Help shown when a reply does not parse",
		},
		"new_message_notification": {
			Text: "New anonymous message\n\n" +
				"From: {display_name} ({pseudonym})\n" +
				"At: {timestamp}\n\n" +
				"{message}\n\n" +
				"Reply with \"{display_name}: your reply\" or use the dashboard.",
			Description: "Operator notification for a new text message",
		},
		"new_photo_notification": {
			Text: "New anonymous photo\n\n" +
				"From: {display_name} ({pseudonym})\n" +
				"At: {timestamp}\n\n" +
				"{caption_text}" +
				"Reply with \"{display_name}: your reply\" or use the dashboard.",
			Description: "Operator notification for a new photo",
		},
	}
}
