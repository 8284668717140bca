package constant

// User-facing messages. Guard rejections share one non-technical message so a
// mutation attempt is indistinguishable from a misunderstood question; the
// natural-language text never exposes SQL syntax.
const (
	MsgEmptyQuestion = "Question must not be empty."

	MsgUnintelligibleQuestion = "Sorry, I could not understand your question. Please try rephrasing it."

	MsgUnsupportedOperation = "Sorry, your question seems to involve a data modification. Only read-only queries are supported."

	// MsgExecutionError wraps the database error into a user-facing sentence.
	MsgExecutionError = "Sorry, something went wrong while running your query: %s"

	MsgApology = "Sorry, something went wrong while answering your question. Please try again later."

	MsgEmptyResultAnswer = "No matching data was found for your query. You could try adjusting the conditions."
)

// Prompts for the answer-generation step of the query pipeline.
const (
	AnswerSystemPrompt = `You are a friendly data analysis assistant. The user asked a data question and the system already executed the SQL query and obtained the result.
Answer the user's question based on the query result, in natural and easy language.
Rules:
1. Answer the question directly; never mention SQL or technical details
2. If the result is large, summarize the key figures
3. Keep the answer concise, under 200 words`

	// AnswerUserPrompt is filled with question, row count, column count and the
	// bounded data preview.
	AnswerUserPrompt = `User question: %s

Query result (%d rows, %d columns):
%s`
)

// Prompts for the agent dispatcher.
const (
	AgentSystemPrompt = `You are a data analysis assistant that can query a relational database on behalf of the user.

Your abilities:
1. Understand the user's natural-language question
2. Use the database query result provided to you, when present
3. Give a clear, friendly answer grounded in that result

Rules:
1. Answer in natural, easy language
2. Never show SQL statements or other technical details to the user
3. If the result is large, summarize the key figures
4. Keep the answer concise, under 200 words
5. If you cannot answer, politely say why`

	// AgentDecisionSystemPrompt asks the model whether the question needs the
	// database tool. JSON only, no explanation, mirroring the tool contract.
	AgentDecisionSystemPrompt = `Decide: does answering this question require querying the database?

Internal logic:
- Questions about stored data (counts, lookups, listings, statistics) -> query
- Greetings, small talk, questions answerable from the conversation alone -> no query
- Uncertain -> query (default)

Use this logic internally. Just output JSON, don't explain.

JSON format:
{"use_tool": boolean}`

	// AgentToolResultPrompt wraps a successful tool invocation for synthesis.
	AgentToolResultPrompt = `User question: %s

Database query result (%d rows):
%s

Answer the user's question based on this result.`

	// AgentToolFailurePrompt lets the model fall back gracefully when the tool
	// returned a structured failure.
	AgentToolFailurePrompt = `User question: %s

The database query tool could not produce a result. Reason: %s

Politely tell the user the data could not be retrieved, without technical details.`
)
