package seeders

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/questrail-games/quest_api/model"
)

// ContentSeeder seeds the demo adventure used for trials and smoke tests
type ContentSeeder struct {
	db *gorm.DB
}

// NewContentSeeder creates a new content seeder
func NewContentSeeder(db *gorm.DB) *ContentSeeder {
	return &ContentSeeder{db: db}
}

const DemoGameID = "game_clockmaker"

// SeedContent seeds the demo game with its puzzles and interstitial screens
func (s *ContentSeeder) SeedContent() error {
	if err := s.seedGame(); err != nil {
		return err
	}
	if err := s.seedPuzzles(); err != nil {
		return err
	}
	if err := s.seedScreens(); err != nil {
		return err
	}

	log.Println("Content seeding completed successfully")
	return nil
}

func (s *ContentSeeder) seedGame() error {
	now := time.Now()
	game := model.Game{
		ID:          DemoGameID,
		Title:       "The Clockmaker's Secret",
		Description: "A walking mystery through the old town. Follow the clockmaker's trail from the market square to the cathedral tower and uncover what he hid before he vanished.",
		Theme:       "old_town",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.upsertGame(game)
}

func (s *ContentSeeder) seedPuzzles() error {
	now := time.Now()

	puzzles := []model.Puzzle{
		{
			ID:         "puzzle_market_square",
			GameID:     DemoGameID,
			Seq:        1,
			Title:      "The Market Square",
			Story:      "The clockmaker's workshop stood at the edge of the market square for forty years. Above the door, a wrought iron sign still swings in the wind.",
			Challenge:  "Find the old workshop sign. How many gears are worked into the iron?",
			AnswerType: "free_text",
			Answer:     "seven",
			Clues: jsonArray([]string{
				"The sign hangs above the green door on the north side of the square.",
				"Count only the complete gears, not the half-rounds on the border.",
				"There are fewer than ten.",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:         "puzzle_fountain",
			GameID:     DemoGameID,
			Seq:        2,
			Title:      "The Frozen Fountain",
			Story:      "Every winter the clockmaker wound the fountain clock by hand. The dedication plaque names the craftsman who cast its bronze face.",
			Challenge:  "Read the plaque at the fountain's base. What is the craftsman's family name?",
			AnswerType: "free_text",
			Answer:     "kowalski",
			Clues: jsonArray([]string{
				"The plaque is on the side facing the town hall.",
				"The family name is the last word of the second line.",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:         "puzzle_archway",
			GameID:     DemoGameID,
			Seq:        3,
			Title:      "The Merchant's Archway",
			Story:      "Under the archway to the cloth hall, merchants once chalked their guild marks. One mark repeats on the keystone: the clockmaker's own.",
			AnswerType: "multiple_choice",
			Challenge:  "Which symbol is carved into the keystone?",
			Options:    jsonArray([]string{"A winged hourglass", "A crowned lion", "A crossed key and cog", "A ship's wheel"}),
			Answer:     "A crossed key and cog",
			Clues: jsonArray([]string{
				"Look up. The keystone is the wedge at the very top of the arch.",
				"The symbol combines something that opens with something that turns.",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:         "puzzle_cathedral",
			GameID:     DemoGameID,
			Seq:        4,
			Title:      "The Cathedral Tower",
			Story:      "The trail ends at the tower clock the old man kept until his last day. Its face carries a motto in Latin, one word of which he underlined in his notebook.",
			Challenge:  "The motto reads TEMPUS OMNIA REVELAT. Which word did the clockmaker underline? (Hint: it is what time does.)",
			AnswerType: "free_text",
			Answer:     "revelat",
			Clues: jsonArray([]string{
				"The motto means 'time reveals all'.",
				"He underlined the verb.",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, puzzle := range puzzles {
		if err := s.upsertPuzzle(puzzle); err != nil {
			return err
		}
	}

	return nil
}

func (s *ContentSeeder) seedScreens() error {
	now := time.Now()

	screens := []model.InterstitialScreen{
		{
			ID:     "screen_intro_1",
			GameID: DemoGameID,
			Seq:    1,
			Tag:    "",
			Title:  "Welcome to the Old Town",
			Body:   "In 1899 the town clockmaker, Elias Brandt, disappeared without a trace. He left behind a workshop, a wound tower clock, and a trail of marks only a careful eye will catch. You are that eye.",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     "screen_intro_2",
			GameID: DemoGameID,
			Seq:    2,
			Tag:    "",
			Title:  "How to Play",
			Body:   "Each stop gives you a story and a challenge. Answer what you find on site. A wrong answer costs nothing but reveals a clue, so guess boldly. The trail starts at the market square.",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     "screen_fountain_legend",
			GameID: DemoGameID,
			Seq:    1,
			Tag:    "puzzle_fountain",
			Title:  "The Winter of 1878",
			Body:   "They say the fountain froze solid the year Brandt arrived, and that he kept its clock running through the frost out of sheer stubbornness. The town never forgot it.",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     "screen_cathedral_legend",
			GameID: DemoGameID,
			Seq:    1,
			Tag:    "puzzle_cathedral",
			Title:  "The Last Climb",
			Body:   "The sexton swears Brandt climbed the tower the night he vanished. The clock has not lost a second since.",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     "screen_finale",
			GameID: DemoGameID,
			Seq:    1,
			Tag:    "__end__",
			Title:  "Time Reveals All",
			Body:   "Behind the clock face you find Brandt's notebook and his secret: the tower clock was never wound again because it never needed to be. Some mechanisms, once set right, keep their own time. Thank you for walking the trail.",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, screen := range screens {
		if err := s.upsertScreen(screen); err != nil {
			return err
		}
	}

	return nil
}

func (s *ContentSeeder) upsertGame(game model.Game) error {
	var existing model.Game
	if err := s.db.Where("id = ?", game.ID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			if err := s.db.Create(&game).Error; err != nil {
				log.Printf("Error creating game %s: %v", game.Title, err)
				return err
			}
			log.Printf("Created game: %s", game.Title)
			return nil
		}
		return err
	}

	log.Printf("Game %s already exists, skipping", game.Title)
	return nil
}

func (s *ContentSeeder) upsertPuzzle(puzzle model.Puzzle) error {
	var existing model.Puzzle
	if err := s.db.Where("id = ?", puzzle.ID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			if err := s.db.Create(&puzzle).Error; err != nil {
				log.Printf("Error creating puzzle %s: %v", puzzle.Title, err)
				return err
			}
			log.Printf("Created puzzle: %s", puzzle.Title)
			return nil
		}
		return err
	}

	log.Printf("Puzzle %s already exists, skipping", puzzle.Title)
	return nil
}

func (s *ContentSeeder) upsertScreen(screen model.InterstitialScreen) error {
	var existing model.InterstitialScreen
	if err := s.db.Where("id = ?", screen.ID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			if err := s.db.Create(&screen).Error; err != nil {
				log.Printf("Error creating screen %s: %v", screen.Title, err)
				return err
			}
			log.Printf("Created screen: %s", screen.Title)
			return nil
		}
		return err
	}

	log.Printf("Screen %s already exists, skipping", screen.Title)
	return nil
}

func jsonArray(items []string) json.RawMessage {
	b, _ := json.Marshal(items)
	return b
}
