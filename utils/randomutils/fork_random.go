package randomutils

import "math/rand"

// ForkRandomProvider creates a child random provider seeded from the next value of the parent. Workers use their own
// forked provider so a campaign seeded with one value replays the same per-worker streams.
func ForkRandomProvider(randomProvider *rand.Rand) *rand.Rand {
	return rand.New(rand.NewSource(randomProvider.Int63()))
}

// ForkRandomProviders creates count child random providers from the parent, in order.
func ForkRandomProviders(randomProvider *rand.Rand, count int) []*rand.Rand {
	forks := make([]*rand.Rand, count)
	for i := range forks {
		forks[i] = ForkRandomProvider(randomProvider)
	}
	return forks
}
