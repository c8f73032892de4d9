package dialog

// User-facing wording of the conversation.
const (
	textGreeting       = "Hi there"
	textAskLocation    = "Can you give me your location so I can find the closest burger places?"
	textAskType        = "What are you looking for?"
	textAskMore        = "Do you want to see more?"
	textDontUnderstand = "I don't understand"
	textOutOfResults   = "We're out of locations.\nDo you want to look for something else?"
	textFarewellLater  = "Ok, cool. Just say \"Hi\" later and I'll help you out"
	textFarewell       = "Thanks, see you later."
	textSearchFailed   = "Sorry, I couldn't reach the venue search right now. Let's try again."
)

// Quick-reply option labels.
var (
	typeOptions    = []string{"Burgers", "Beer", "Both"}
	newTypeOptions = []string{"Burgers", "Beer", "Both", "No, later"}
	moreOptions    = []string{"Yes", "No"}
)
