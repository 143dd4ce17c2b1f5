// Package harmony is a bidirectional codec between structured conversations
// and the flat o200k token streams the gpt-oss model family reads and
// writes.
//
// Rendering turns a Conversation into tokens for prompting or training;
// parsing turns completion tokens back into Messages, either in one shot or
// incrementally with a StreamableParser.
//
// Example usage:
//
//	enc, err := harmony.LoadEncoding(harmony.HarmonyGptOss)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	convo := harmony.FromMessages(
//	    harmony.FromRoleAndContent(harmony.RoleSystem, harmony.NewSystemContent()),
//	    harmony.FromRoleAndText(harmony.RoleUser, "What is 2 + 2?"),
//	)
//
//	tokens, err := enc.RenderConversationForCompletion(convo, harmony.RoleAssistant, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... sample the model, then read its completion back:
//	messages, err := enc.ParseMessagesFromCompletionTokens(completion, harmony.RoleAssistant)
package harmony
