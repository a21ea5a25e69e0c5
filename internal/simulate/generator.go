package simulate

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/domain/trace"
)

const randomFloatDivisor = 1_000_000

// getRandomFloat returns a random float64 in [0,1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// kindsByVocabulary groups the vocabulary members, generic kinds excluded.
func kindsByVocabulary() map[trace.Vocabulary][]trace.Kind {
	out := make(map[trace.Vocabulary][]trace.Kind)
	for _, k := range trace.Kinds() {
		if k.Name == k.Vocabulary.Generic().Name {
			continue
		}
		out[k.Vocabulary] = append(out[k.Vocabulary], k)
	}
	return out
}

// action emits one trace for player into tr.
type action func(ctx context.Context, tr *app.Tracker, p *player) error

type player struct {
	id    string
	level string
	step  int
	kinds map[trace.Vocabulary][]trace.Kind
}

func (p *player) pick(v trace.Vocabulary) trace.Kind {
	ks := p.kinds[v]
	return ks[randIntn(len(ks))]
}

func (p *player) target(prefix string) string {
	return prefix + "-" + strconv.Itoa(randIntn(8)+1)
}

var actions = []action{
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		return tr.Accessible().Accessed(ctx, p.target("screen"), p.pick(trace.VocabularyAccessible))
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		return tr.Accessible().Skipped(ctx, p.target("cutscene"), trace.KindCutscene)
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		if err := tr.SetSuccess(ctx, getRandomFloat() > 0.3); err != nil {
			return err
		}
		return tr.Alternative().Selected(ctx, p.target("question"), "option-"+strconv.Itoa(randIntn(4)+1), p.pick(trace.VocabularyAlternative))
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		return tr.Alternative().Unlocked(ctx, p.target("path"), "door", trace.KindPath)
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		if err := tr.SetHealth(ctx, float64(randIntn(100))); err != nil {
			return err
		}
		return tr.GameObject().Interacted(ctx, p.target("enemy"), trace.KindEnemy)
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		if err := tr.SetPosition(ctx, getRandomFloat()*100, getRandomFloat()*100, 0); err != nil {
			return err
		}
		return tr.GameObject().Used(ctx, p.target("item"), trace.KindItem)
	},
	func(ctx context.Context, tr *app.Tracker, p *player) error {
		if err := tr.SetVar(ctx, "player", trace.StringValue(p.id)); err != nil {
			return err
		}
		return tr.Completable().Progressed(ctx, p.level, float64(p.step)/10, trace.KindLevel)
	},
}

// playLevel emits initialized, n random actions and completed. It returns
// the number of traces attempted and the errors of those rejected.
func playLevel(ctx context.Context, tr *app.Tracker, p *player, n int) (int, []error) {
	var errs []error
	attempted := 0
	try := func(err error) {
		attempted++
		if err != nil {
			errs = append(errs, err)
		}
	}

	try(tr.Completable().Initialized(ctx, p.level, trace.KindLevel))
	for p.step = 0; p.step < n; p.step++ {
		if ctx.Err() != nil {
			return attempted, errs
		}
		try(actions[randIntn(len(actions))](ctx, tr, p))
	}
	score := getRandomFloat()
	try(tr.Completable().Completed(ctx, p.level, score >= 0.5, score, trace.KindLevel))
	return attempted, errs
}
