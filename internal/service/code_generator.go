package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Leganyst/room-scheduler/internal/repository"
)

const DefaultCodePrefix = "RSV"

// CodeGenerator выдаёт коды вида PREFIX-YYYYMMDD-NNN.
// NNN = число уже выданных кодов этой даты (в любом состоянии) + 1.
// Гонку двух параллельных броней на одну дату ловит уникальный индекс
// по code; вызывающий повторяет создание.
type CodeGenerator struct {
	prefix string
}

func NewCodeGenerator(prefix string) *CodeGenerator {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return &CodeGenerator{prefix: prefix}
}

// DatePrefix — общая часть кодов для даты startDate.
func (g *CodeGenerator) DatePrefix(startDate time.Time) string {
	return fmt.Sprintf("%s-%s-", g.prefix, startDate.Format("20060102"))
}

func (g *CodeGenerator) Next(ctx context.Context, repo repository.ReservationRepository, startDate time.Time) (string, error) {
	prefix := g.DatePrefix(startDate)
	n, err := repo.CountByCodePrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("count codes %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s%03d", prefix, n+1), nil
}
