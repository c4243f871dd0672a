package generation

import "context"

// Mock is a test double for the Generator interface. Each call is counted
// so tests can assert that preconditions short-circuit before the network.
type Mock struct {
	ContentResponse    TopicContent
	ContentErr         error
	QuizResponse       GeneratedQuiz
	QuizErr            error
	EvalResponse       Evaluation
	EvalErr            error
	AssessmentResponse Assessment
	AssessmentErr      error
	ResultResponse     AssessmentResult
	ResultErr          error
	HealthErr          error

	ContentCalls    int
	QuizCalls       int
	EvalCalls       int
	AssessmentCalls int
	ResultCalls     int

	LastContentRequest TopicContentRequest
	LastQuizRequest    QuizRequest
	LastAnswers        map[string]string
}

func (m *Mock) GenerateTopicContent(_ context.Context, req TopicContentRequest) (TopicContent, error) {
	m.ContentCalls++
	m.LastContentRequest = req
	if m.ContentErr != nil {
		return TopicContent{
			Content:     PlaceholderContent(req.ModuleTitle),
			Placeholder: true,
		}, nil
	}
	return m.ContentResponse, nil
}

func (m *Mock) GenerateModuleQuiz(_ context.Context, req QuizRequest) (GeneratedQuiz, error) {
	m.QuizCalls++
	m.LastQuizRequest = req
	if m.QuizErr != nil {
		return GeneratedQuiz{}, m.QuizErr
	}
	return m.QuizResponse, nil
}

func (m *Mock) EvaluateQuiz(_ context.Context, _ string, answers map[string]string) (Evaluation, error) {
	m.EvalCalls++
	m.LastAnswers = answers
	if m.EvalErr != nil {
		return Evaluation{}, m.EvalErr
	}
	return m.EvalResponse, nil
}

func (m *Mock) GenerateAssessment(_ context.Context, _ AssessmentRequest) (Assessment, error) {
	m.AssessmentCalls++
	if m.AssessmentErr != nil {
		return Assessment{}, m.AssessmentErr
	}
	return m.AssessmentResponse, nil
}

func (m *Mock) EvaluateAssessment(_ context.Context, _ string, answers map[string]string) (AssessmentResult, error) {
	m.ResultCalls++
	m.LastAnswers = answers
	if m.ResultErr != nil {
		return AssessmentResult{}, m.ResultErr
	}
	return m.ResultResponse, nil
}

func (m *Mock) Health(_ context.Context) error {
	return m.HealthErr
}
