package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// demoProfile is one seeded card. The fixture set mirrors the demo data
// shipped with the original client.
type demoProfile struct {
	name       string
	gender     string
	role       string
	farmType   string
	location   string
	bio        string
	badges     []string
	preference string
}

var demoProfiles = []demoProfile{
	{"Julien, 32 ans", "male", "farmer", "élevage", "Normandie",
		"Passionné par mes Brunes des Alpes. Je cherche quelqu'un qui n'a pas peur de se lever à 5h du mat' pour la traite !",
		[]string{"Bio", "Lève-tôt", "Fromage"}, "female"},
	{"Marie, 28 ans", "female", "farmer", "maraîchage", "Bretagne",
		"Les mains dans la terre et la tête dans les étoiles. J'ai repris l'exploitation familiale en permaculture.",
		[]string{"Permaculture", "Nature", "Vélo"}, "male"},
	{"Paul, 45 ans", "male", "farmer", "céréales", "Gers",
		"Simple, bon vivant. J'aime les grandes étendues et les repas en famille le dimanche.",
		[]string{"Bon vivant", "Tradition", "Rugby"}, "female"},
	{"Claire, 35 ans", "female", "admirer", "", "Auvergne",
		"Citadine en reconversion, je rêve de grands espaces et de fromages qui ont du caractère.",
		[]string{"Nouveau", "Randonnée"}, "male"},
	{"Antoine, 29 ans", "male", "farmer", "viticulture", "Bourgogne",
		"Vigneron de père en fils. Le meilleur moment de l'année ? Les vendanges, évidemment.",
		[]string{"Vin", "Patrimoine"}, "female"},
	{"Sophie, 31 ans", "female", "farmer", "élevage", "Pays Basque",
		"Mes brebis d'abord, mais il reste de la place dans la bergerie.",
		[]string{"Montagne", "Fromage", "Nouveau"}, "male"},
}

// SeedDemoData resets the database and populates it with the demo
// profiles plus a set of like/pass edges.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates one account + profile per demo entry (password "paille").
//  3. Seeds directed likes with ~60% probability and guarantees at least
//     one mutual pair, creating its conversation and an opening message.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "conversations", "likes", "passes", "profiles", "accounts"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("paille"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ids := make([]uint64, 0, len(demoProfiles))
	for i, p := range demoProfiles {
		account := Account{
			Email:        fmt.Sprintf("demo%d@coeurdepaille.fr", i+1),
			PasswordHash: string(hash),
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(200)) * time.Hour),
		}
		if err := db.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}

		var farmType *string
		if p.farmType != "" {
			ft := p.farmType
			farmType = &ft
		}
		profile := Profile{
			ID:         account.ID,
			Name:       p.name,
			Gender:     p.gender,
			Role:       p.role,
			FarmType:   farmType,
			Location:   p.location,
			Bio:        p.bio,
			Image:      fmt.Sprintf("https://images.coeurdepaille.fr/avatars/%d.jpg", i+1),
			Preference: p.preference,
			Badges:     p.badges,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
		ids = append(ids, account.ID)
	}
	log.Printf("Seeded %d profiles.", len(ids))

	// Random one-way likes between opposite-gender pairs.
	for i, author := range ids {
		for j, target := range ids {
			if i == j || demoProfiles[i].gender == demoProfiles[j].gender {
				continue
			}
			if r.Intn(100) >= 60 {
				continue
			}
			like := Like{AuthorID: author, TargetID: target}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}
		}
	}

	// Guaranteed mutual pair: Julien <-> Marie, with its conversation.
	for _, edge := range [][2]uint64{{ids[0], ids[1]}, {ids[1], ids[0]}} {
		like := Like{AuthorID: edge[0], TargetID: edge[1]}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return fmt.Errorf("failed to seed mutual like: %w", err)
		}
	}

	low, high := NormalizePair(ids[0], ids[1])
	conv := Conversation{ID: uuid.New(), UserLowID: low, UserHighID: high}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}

	opening := Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       ids[1],
		Text:           "C'est super intéressant ton approche du bio !",
	}
	if err := db.Create(&opening).Error; err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}
	now := opening.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if err := db.Model(&Conversation{}).Where("id = ?", conv.ID).
		Updates(map[string]any{"last_message": opening.Text, "last_message_at": now}).Error; err != nil {
		return fmt.Errorf("failed to seed conversation summary: %w", err)
	}

	return nil
}
