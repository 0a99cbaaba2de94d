package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/prepwise/prepwise/internal/domain"
)

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAI creates a Generator backed by the OpenAI API.
func NewOpenAI(apiKey, model string, logger *slog.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger.With("component", "llm"),
	}
}

// GenerateQuestions returns exactly req.Amount interview questions.
func (g *OpenAIGenerator) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	prompt := questionPrompt(req)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("question completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("question completion: empty response")
	}

	questions, err := parseQuestionList(resp.Choices[0].Message.Content, req.Amount)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Generated interview questions", "role", req.Role, "amount", len(questions))
	return questions, nil
}

// GenerateFeedback scores a formatted transcript against the fixed feedback
// schema and returns the parsed object.
func (g *OpenAIGenerator) GenerateFeedback(ctx context.Context, transcript string) (*domain.Feedback, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: feedbackSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: feedbackPrompt(transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("feedback completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("feedback completion: empty response")
	}

	feedback, err := parseFeedback(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Generated feedback", "overall_score", feedback.OverallScore)
	return feedback, nil
}

func questionPrompt(req QuestionRequest) string {
	var b strings.Builder
	b.WriteString("Prepare questions for a job interview.\n")
	fmt.Fprintf(&b, "The job role is %s.\n", req.Role)
	fmt.Fprintf(&b, "The job experience level is %s.\n", req.Level)
	fmt.Fprintf(&b, "The tech stack used in the job is: %s.\n", req.TechStack)
	fmt.Fprintf(&b, "The focus between behavioural and technical questions should lean towards: %s.\n", req.Type)
	fmt.Fprintf(&b, "The amount of questions required is: %d.\n", req.Amount)
	b.WriteString("Please return only the questions, without any additional text.\n")
	b.WriteString("The questions are going to be read by a voice assistant so do not use \"/\" or \"*\" ")
	b.WriteString("or any other special characters which might break the voice assistant.\n")
	b.WriteString(`Return the questions formatted like this: ["Question 1", "Question 2", "Question 3"]`)
	return b.String()
}

const feedbackSystemPrompt = "You are a professional interviewer analyzing a mock interview. " +
	"Your task is to evaluate the candidate based on structured categories and " +
	"respond with a single JSON object. Be thorough and detailed in your " +
	"analysis; do not be lenient, and point out mistakes and areas for improvement."

func feedbackPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\nPlease score the candidate from 0 to 100 in the following areas. ")
	b.WriteString("Do not add categories other than the ones provided:\n")
	b.WriteString("- Communication Skills: Clarity, articulation, structured responses.\n")
	b.WriteString("- Technical Knowledge: Understanding of key concepts for the role.\n")
	b.WriteString("- Problem Solving: Ability to analyze problems and propose solutions.\n")
	b.WriteString("- Cultural Fit: Alignment with company values and the job role.\n")
	b.WriteString("- Confidence and Clarity: Confidence in responses, engagement, and clarity.\n")
	b.WriteString("Respond with JSON containing overallScore, categoryScores ")
	b.WriteString("(array of {categoryName, score, comment} in the order above), ")
	b.WriteString("strengths, improvementAreas and summary.")
	return b.String()
}

// parseQuestionList decodes a JSON array of question strings, tolerating
// Markdown code fences around the payload.
func parseQuestionList(content string, want int) ([]string, error) {
	cleaned := cleanJSONResponse(content)

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("parse question list: %w", err)
	}
	if len(questions) != want {
		return nil, fmt.Errorf("parse question list: expected %d questions, got %d", want, len(questions))
	}
	return questions, nil
}

// parseFeedback validates the raw completion payload against the feedback
// schema before decoding it. A schema violation is an external-call failure.
func parseFeedback(content string) (*domain.Feedback, error) {
	cleaned := cleanJSONResponse(content)

	if errs := validateFeedbackPayload([]byte(cleaned)); len(errs) > 0 {
		return nil, fmt.Errorf("feedback schema validation: %s", strings.Join(errs, "; "))
	}

	var feedback domain.Feedback
	if err := json.Unmarshal([]byte(cleaned), &feedback); err != nil {
		return nil, fmt.Errorf("parse feedback: %w", err)
	}
	return &feedback, nil
}

// cleanJSONResponse strips the Markdown code fences models sometimes wrap
// around JSON payloads.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}
