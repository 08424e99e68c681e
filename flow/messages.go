package flow

import "fmt"

const (
	msgWelcome = "I'm a bot to update you about Wolt venue statuses!\n" +
		"If at any point you'd like to restart please send /start"
	msgAskQuery = "What is the name of the venue you are looking for?"

	msgNoMatch = "Sorry, there's no venue matching your search\n" +
		"If you'd like to try again please reply /start"

	msgAlreadyOnline = "The venue is already online!\n" +
		"To search for another venue please reply /start"
	msgWillUpdate = "The venue seems to be offline, I'll update you once it is open"
	msgNowOnline  = "The venue is now online!\n" +
		"To search for another venue please reply /start"

	msgNoMorePages = "No more venues to show\n" +
		"Reply with a number to pick a venue, or send /start to search again"

	msgUpstreamFailure = "Something went wrong while talking to Wolt, please try again"
	msgStoreFailure    = "Something went wrong on my side, please try again in a bit"

	msgNothingToCancel = "There's nothing to cancel right now\nSend /start to search for a venue"
	msgCancelled       = "Okay, I stopped what I was doing\nSend /start to search for a venue"

	msgHelp = "Send /start and I'll help you watch a Wolt venue until it comes online.\n" +
		"Search by name, pick a venue from the list, and I'll message you the moment " +
		"it starts delivering.\n\n" +
		"/start - start over\n" +
		"/cancel - stop watching the current venue\n" +
		"/help - this message"
)

func msgInvalidSelection(max int) string {
	return fmt.Sprintf("Please reply with a number between 1 and %d", max)
}

func msgTrackingReminder(title string) string {
	return fmt.Sprintf("I'm already watching %s and will message you when it opens\n"+
		"Send /start if you'd like to search for a different venue", title)
}

func msgStoppedWatching(title string) string {
	return fmt.Sprintf("Okay, I stopped watching %s\nSend /start to search for a venue", title)
}
