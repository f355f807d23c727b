package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/spigell/interviewer/internal/interview"
)

const defaultPrefix = "interviewer"

type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps each vacancy as a JSON string, the vacancy ids in a set
// and the candidates of a vacancy in a hash keyed by candidate id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts.Prefix)
}

func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) vacancyKey(id string) string {
	return r.prefix + ":vacancy:" + id
}

func (r *RedisStore) vacanciesKey() string {
	return r.prefix + ":vacancies"
}

func (r *RedisStore) candidatesKey(vacancyID string) string {
	return r.prefix + ":vacancy:" + vacancyID + ":candidates"
}

// Ping checks that Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) SaveVacancy(ctx context.Context, v *interview.Vacancy) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal vacancy %s: %w", v.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.vacancyKey(v.ID), data, 0)
	pipe.SAdd(ctx, r.vacanciesKey(), v.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save vacancy %s: %w", v.ID, err)
	}
	return nil
}

func (r *RedisStore) GetVacancy(ctx context.Context, id string) (*interview.Vacancy, error) {
	data, err := r.client.Get(ctx, r.vacancyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("vacancy %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}

	var v interview.Vacancy
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal vacancy %s: %w", id, err)
	}
	return &v, nil
}

func (r *RedisStore) ListVacancies(ctx context.Context) ([]*interview.Vacancy, error) {
	ids, err := r.client.SMembers(ctx, r.vacanciesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list vacancies: %w", err)
	}

	out := make([]*interview.Vacancy, 0, len(ids))
	for _, id := range ids {
		v, err := r.GetVacancy(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sortVacancies(out)
	return out, nil
}

func (r *RedisStore) SaveCandidate(ctx context.Context, c *interview.CandidateResult) error {
	exists, err := r.client.Exists(ctx, r.vacancyKey(c.VacancyID)).Result()
	if err != nil {
		return fmt.Errorf("check vacancy %s: %w", c.VacancyID, err)
	}
	if exists == 0 {
		return fmt.Errorf("vacancy %s: %w", c.VacancyID, ErrNotFound)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate %s: %w", c.ID, err)
	}

	if err := r.client.HSet(ctx, r.candidatesKey(c.VacancyID), c.ID, data).Err(); err != nil {
		return fmt.Errorf("save candidate %s: %w", c.ID, err)
	}
	return nil
}

func (r *RedisStore) GetCandidate(ctx context.Context, vacancyID, candidateID string) (*interview.CandidateResult, error) {
	data, err := r.client.HGet(ctx, r.candidatesKey(vacancyID), candidateID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
		}
		return nil, fmt.Errorf("get candidate %s: %w", candidateID, err)
	}

	var c interview.CandidateResult
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal candidate %s: %w", candidateID, err)
	}
	return &c, nil
}

func (r *RedisStore) ListCandidates(ctx context.Context, vacancyID string) ([]*interview.CandidateResult, error) {
	if _, err := r.GetVacancy(ctx, vacancyID); err != nil {
		return nil, err
	}

	values, err := r.client.HGetAll(ctx, r.candidatesKey(vacancyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list candidates of %s: %w", vacancyID, err)
	}

	out := make([]*interview.CandidateResult, 0, len(values))
	for id, data := range values {
		var c interview.CandidateResult
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("unmarshal candidate %s: %w", id, err)
		}
		out = append(out, &c)
	}
	sortCandidates(out)
	return out, nil
}
