package answer

import "pracame/internal/model/knowledge"

// Instructions is the fixed policy block sent as the system message of
// every generated answer. The grounding policy already refuses before
// generation when there is no evidence; the instructions restate that
// rule as a second line of defense inside the prompt itself.
const Instructions = `You are a technical support assistant answering questions for users with no technical background. Explain causes and fixes in plain, simple language.

Rules you must follow:
1. Answer using only the knowledge base excerpts provided below.
2. Never draw on outside knowledge, even when you are confident.
3. Never invent facts, steps, commands or product names that are not in the excerpts.
4. If the excerpts are empty or do not cover the question, say that you cannot answer instead of guessing.
5. The conversation history uses internal "User:" and "Assistant:" labels; never repeat those labels in your answer.`

// Assemble builds the structured generation request. It is a pure
// function: identical inputs always produce an identical request.
func Assemble(context, history, question string) knowledge.PromptRequest {
	return knowledge.PromptRequest{
		Instructions: Instructions,
		Context:      context,
		History:      history,
		Question:     question,
	}
}
