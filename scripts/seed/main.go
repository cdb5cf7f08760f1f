// seed loads verses and the topical index into PostgreSQL.
//
// Usage:
//
//	go run ./scripts/seed -verses data/verses.json [-topics data/topics.yaml]
//
// Files ending in .yaml or .yml are read as YAML, anything else as JSON. With -flush-cache the
// cached verse lookups in REDIS_URL are dropped afterwards so the API serves the new data.
// The verses file is an array of {book, chapter, verse, text, translation, testament}.
// The topics file is an array of {name, category, related_topics, verses}, where verses
// lists references such as "John 3:16". Without -topics the built-in topic set is used.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/cache"
	appconfig "github.com/sola-scriptura-chat-api/internal/config"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"github.com/sola-scriptura-chat-api/internal/repository/postgres"
	"github.com/sola-scriptura-chat-api/internal/scripture"
	"github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/sola-scriptura-chat-api/pkg/schema/db"
	"gopkg.in/yaml.v3"
)

const defaultTopicRelevance = 0.8

// verseCachePatterns covers every key family VerseService writes
var verseCachePatterns = []string{"verse:*"}

// topicSeed is one topic with the verses it should link to
type topicSeed struct {
	Name          string   `json:"name" yaml:"name"`
	Category      string   `json:"category" yaml:"category"`
	RelatedTopics []string `json:"related_topics" yaml:"related_topics"`
	Verses        []string `json:"verses" yaml:"verses"`
}

var defaultTopics = []topicSeed{
	{"Love", "Character", []string{"Compassion", "Kindness"}, []string{"John 3:16", "1 Corinthians 13:4", "1 Corinthians 13:5"}},
	{"Faith", "Spiritual Life", []string{"Trust", "Belief"}, []string{"Ephesians 2:8", "Proverbs 3:5", "Proverbs 3:6", "Hebrews 11:1"}},
	{"Hope", "Spiritual Life", []string{"Perseverance", "Future"}, []string{"Jeremiah 29:11", "Romans 8:28"}},
	{"Prayer", "Spiritual Practices", []string{"Worship", "Meditation"}, []string{"Philippians 4:6", "Matthew 6:33"}},
	{"Forgiveness", "Relationships", []string{"Mercy", "Grace"}, []string{"Ephesians 4:32", "1 John 1:9"}},
	{"Wisdom", "Character", []string{"Knowledge", "Understanding"}, []string{"Proverbs 3:5", "Proverbs 3:6", "James 1:5"}},
	{"Peace", "Spiritual Life", []string{"Rest", "Comfort"}, []string{"Philippians 4:7", "Isaiah 41:10", "Psalms 23:1"}},
	{"Joy", "Emotions", []string{"Happiness", "Celebration"}, []string{"Galatians 5:22", "Psalms 23:1"}},
	{"Patience", "Character", []string{"Endurance", "Waiting"}, []string{"James 1:4", "Romans 12:12"}},
	{"Healing", "Health", []string{"Restoration", "Wholeness"}, []string{"Psalms 34:18", "Isaiah 41:10"}},
}

func main() {
	versesFile := flag.String("verses", "", "JSON or YAML file of verses to insert")
	topicsFile := flag.String("topics", "", "JSON or YAML file of topics (defaults to the built-in set)")
	translation := flag.String("translation", "NIV", "Translation used to resolve topic verse references")
	flushCache := flag.Bool("flush-cache", false, "Drop cached verse lookups from Redis after seeding")
	flag.Parse()

	_ = godotenv.Load()

	if err := config.LoadError(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, config.GetConfig().PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	verseRepo := postgres.NewVerseRepository(conn)
	topicRepo := postgres.NewTopicRepository(conn)

	if *versesFile != "" {
		verses, err := readVerses(*versesFile)
		if err != nil {
			log.Fatalf("Failed to read verses: %v", err)
		}
		log.Printf("Loading %d verses from %s...", len(verses), *versesFile)
		inserted, err := verseRepo.BulkInsert(ctx, verses)
		if err != nil {
			log.Fatalf("Failed to insert verses: %v", err)
		}
		log.Printf("Inserted %d verses (%d already present)", inserted, int64(len(verses))-inserted)
	}

	topics := defaultTopics
	if *topicsFile != "" {
		if topics, err = readTopics(*topicsFile); err != nil {
			log.Fatalf("Failed to read topics: %v", err)
		}
	}

	linked, missing, err := seedTopics(ctx, verseRepo, topicRepo, topics, strings.ToUpper(*translation))
	if err != nil {
		log.Fatalf("Failed to seed topics: %v", err)
	}
	log.Printf("Seeded %d topics with %d verse links", len(topics), linked)
	for _, ref := range missing {
		log.Printf("Warning: verse %s not found, skipped", ref)
	}

	if *flushCache {
		if err := appconfig.LoadError(); err != nil {
			log.Fatalf("Invalid API configuration: %v", err)
		}
		redisURL := appconfig.GetConfig().RedisURL
		if redisURL == "" {
			log.Println("REDIS_URL not set, nothing to flush")
			return
		}
		rdb, err := cache.NewRedis(ctx, redisURL, appconfig.GetConfig().RedisDialTimeout, logger.Nop())
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Printf("Dropped %d cached verse entries", flushVerseCache(ctx, rdb))
	}
}

// flushVerseCache deletes every cached verse lookup and returns how many keys went
func flushVerseCache(ctx context.Context, c cache.Cache) int {
	deleted := 0
	for _, pattern := range verseCachePatterns {
		for _, key := range c.Keys(ctx, pattern) {
			if c.Delete(ctx, key) {
				deleted++
			}
		}
	}
	return deleted
}

// decodeFile reads a JSON or, by extension, YAML file into v
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// readVerses decodes a verse file, canonicalising book names and filling testaments
func readVerses(path string) ([]models.Verse, error) {
	var verses []models.Verse
	if err := decodeFile(path, &verses); err != nil {
		return nil, err
	}

	for i := range verses {
		v := &verses[i]
		book, ok := scripture.CanonicalBook(v.Book)
		if !ok {
			return nil, fmt.Errorf("verse %d: unknown book %q", i, v.Book)
		}
		v.Book = book
		v.Translation = strings.ToUpper(v.Translation)
		if v.Testament == "" {
			v.Testament = scripture.TestamentOf(book)
		}
	}
	return verses, nil
}

func readTopics(path string) ([]topicSeed, error) {
	var topics []topicSeed
	if err := decodeFile(path, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// seedTopics upserts each topic and links its verses, returning the links made and the
// references that could not be resolved
func seedTopics(
	ctx context.Context,
	verses repository.VerseRepository,
	topics repository.TopicRepository,
	seeds []topicSeed,
	translation string,
) (int, []string, error) {
	linked := 0
	var missing []string

	for _, seed := range seeds {
		id, err := topics.Upsert(ctx, models.Topic{
			Name:          seed.Name,
			Category:      seed.Category,
			RelatedTopics: seed.RelatedTopics,
		})
		if err != nil {
			return linked, missing, err
		}

		for _, raw := range seed.Verses {
			ref, ok := scripture.Parse(raw)
			if !ok {
				missing = append(missing, raw)
				continue
			}
			verse, err := verses.FindByReference(ctx, ref.Book, ref.Chapter, ref.Verse, translation)
			if errors.Is(err, apperr.ErrNotFound) {
				missing = append(missing, raw)
				continue
			}
			if err != nil {
				return linked, missing, err
			}
			if err := topics.AddVerse(ctx, models.TopicVerse{
				TopicID:        id,
				VerseID:        verse.ID,
				RelevanceScore: defaultTopicRelevance,
			}); err != nil {
				return linked, missing, err
			}
			linked++
		}
	}
	return linked, missing, nil
}
