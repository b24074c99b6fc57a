package agents

const (
	describeSystem = "You are a description writer for a car marketplace. " +
		"You write realistic descriptive narratives about the real state of a car."

	describePrompt = "Write a realistic, natural-language description for a car " +
		"with the following features:\n\n%s"

	queryRewriteSystem = "You rewrite user requests into short search queries " +
		"optimised for semantic retrieval over car listings. " +
		"Reply with the rewritten query only."

	recommendSystem = "You are a car marketplace assistant. " +
		"You recommend the best fitting car for the user."

	recommendPrompt = "User request:\n%s\n\nRetrieved cars:\n%s\n\n" +
		"Recommend the best fit among the retrieved cars and explain why, " +
		"grounded only in the retrieved data."
)
