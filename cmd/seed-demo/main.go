package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/database"
	"github.com/eduvista/entrance-backend/internal/logger"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/eduvista/entrance-backend/internal/service"
)

// seedQuestion is a compact source row: the first option is correct.
type seedQuestion struct {
	category model.QuestionCategory
	text     string
	options  []string
}

var bank = []seedQuestion{
	{model.CategoryQuantitative, "What is 15% of 200?", []string{"30", "20", "25", "35"}},
	{model.CategoryQuantitative, "A train covers 120 km in 2 hours. What is its speed in km/h?", []string{"60", "40", "80", "120"}},
	{model.CategoryQuantitative, "What is the next number: 2, 6, 12, 20, ?", []string{"30", "28", "24", "32"}},
	{model.CategoryLogical, "All roses are flowers. Some flowers fade quickly. Which must be true?", []string{"No conclusion about roses fading follows", "All roses fade quickly", "No roses fade quickly", "Some roses are not flowers"}},
	{model.CategoryLogical, "If CAT is coded DBU, how is DOG coded?", []string{"EPH", "EOH", "DPH", "FQI"}},
	{model.CategoryLogical, "Which one does not belong: square, triangle, circle, cube?", []string{"cube", "square", "triangle", "circle"}},
	{model.CategoryVerbal, "Choose the synonym of 'abundant'.", []string{"plentiful", "scarce", "rapid", "hidden"}},
	{model.CategoryVerbal, "Choose the antonym of 'transparent'.", []string{"opaque", "clear", "glassy", "bright"}},
	{model.CategoryVerbal, "Fill the blank: She has been working here ___ 2019.", []string{"since", "for", "from", "at"}},
	{model.CategoryAptitude, "A task takes 6 workers 4 days. How many days for 8 workers?", []string{"3", "2", "5", "6"}},
	{model.CategoryAptitude, "What is the angle between clock hands at 3:00?", []string{"90", "60", "180", "45"}},
	{model.CategoryTechnical, "Which data structure works first-in, first-out?", []string{"queue", "stack", "tree", "heap"}},
	{model.CategoryTechnical, "What does HTTP status 404 mean?", []string{"Not Found", "Forbidden", "Server Error", "Moved Permanently"}},
	{model.CategoryTechnical, "Which SQL clause filters grouped rows?", []string{"HAVING", "WHERE", "ORDER BY", "LIMIT"}},
}

func main() {
	var (
		collegeEmail = flag.String("college-email", "demo@college.test", "Demo college login email")
		password     = flag.String("password", "demo-password", "Password for the college and every student")
		students     = flag.Int("students", 20, "Number of demo students")
		perTest      = flag.Int("questions", 10, "Questions per test")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	collegeRepo := repository.NewCollegeRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	sessionRepo := repository.NewTestSessionRepository(pool)

	// Only college tokens are issued here; those never touch Redis.
	authService := service.NewAuthService(cfg, nil)
	collegeService := service.NewCollegeService(collegeRepo, authService)
	studentService := service.NewStudentService(studentRepo, collegeRepo, authService)
	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool), nil, log)
	testService := service.NewTestDefinitionService(repository.NewTestDefinitionRepository(pool), collegeRepo, sessionRepo, log)

	// ─── College ───────────────────────────────────────────────────────
	college, err := collegeRepo.GetByEmail(ctx, *collegeEmail)
	switch {
	case err == nil:
		fmt.Printf("Found existing college %s\n", college.ID)
	case errors.Is(err, repository.ErrNotFound):
		res, err := collegeService.Register(ctx, &model.RegisterCollegeRequest{
			Name:     "Demo College",
			Email:    *collegeEmail,
			Password: *password,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create college")
		}
		college = &res.College
		fmt.Printf("Created college %s\n", college.ID)
	default:
		log.Fatal().Err(err).Msg("Failed to look up college")
	}

	// ─── Question bank ─────────────────────────────────────────────────
	reqs := make([]model.CreateQuestionRequest, len(bank))
	for i, q := range bank {
		opts := make([]model.OptionRequest, len(q.options))
		for j, text := range q.options {
			opts[j] = model.OptionRequest{Text: text, IsCorrect: j == 0}
		}
		reqs[i] = model.CreateQuestionRequest{
			Text:              q.text,
			Options:           opts,
			CorrectAnswerText: q.options[0],
			Category:          string(q.category),
		}
	}
	existing, err := questionService.ActivePool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read question bank")
	}
	if len(existing) >= len(bank) {
		fmt.Printf("Question bank already has %d active questions\n", len(existing))
	} else {
		if _, err := questionService.BulkCreate(ctx, reqs); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed questions")
		}
		fmt.Printf("Added %d questions\n", len(reqs))
	}

	// ─── Test definition ───────────────────────────────────────────────
	n := min(*perTest, len(bank))
	def, err := testService.Create(ctx, college.ID, &model.CreateTestRequest{
		BatchName:           "demo-batch",
		DurationMinutes:     30,
		QuestionsPerTest:    n,
		PassingScorePercent: 60,
		AllowRetake:         true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}
	fmt.Printf("Created test %s (batch %s, %d questions)\n", def.TestID, def.BatchName, n)

	// ─── Students ──────────────────────────────────────────────────────
	created := 0
	for i := 1; i <= *students; i++ {
		_, err := studentService.Register(ctx, &model.RegisterStudentRequest{
			CollegeID: college.ID,
			Name:      fmt.Sprintf("Demo Student %02d", i),
			Email:     fmt.Sprintf("student%02d@college.test", i),
			Password:  *password,
		})
		if err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				continue
			}
			fmt.Printf("Error creating student %d: %v\n", i, err)
			continue
		}
		created++
	}

	fmt.Printf("\nSeed completed! Added %d/%d students.\n", created, *students)
}
