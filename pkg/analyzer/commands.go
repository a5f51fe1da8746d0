package analyzer

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// PackageManager describes one package manager's command vocabulary and its
// conventional cache locations.
type PackageManager struct {
	Name       string
	Commands   []string
	CachePaths []string
}

var packageManagers = []PackageManager{
	{
		Name:       "npm",
		Commands:   []string{"npm install", "npm ci", "npm i "},
		CachePaths: []string{"~/.npm", "node_modules"},
	},
	{
		Name:       "yarn",
		Commands:   []string{"yarn install", "yarn --frozen-lockfile"},
		CachePaths: []string{"~/.cache/yarn", "node_modules"},
	},
	{
		Name:       "pnpm",
		Commands:   []string{"pnpm install", "pnpm i "},
		CachePaths: []string{"~/.pnpm-store", "node_modules"},
	},
	{
		Name:       "pip",
		Commands:   []string{"pip install", "pip3 install"},
		CachePaths: []string{"~/.cache/pip"},
	},
	{
		Name:       "poetry",
		Commands:   []string{"poetry install"},
		CachePaths: []string{"~/.cache/pypoetry"},
	},
	{
		Name:       "go",
		Commands:   []string{"go mod download", "go build", "go install"},
		CachePaths: []string{"~/go/pkg/mod", "~/.cache/go-build"},
	},
	{
		Name:       "cargo",
		Commands:   []string{"cargo build", "cargo fetch"},
		CachePaths: []string{"~/.cargo", "target"},
	},
	{
		Name:       "maven",
		Commands:   []string{"mvn install", "mvn package", "mvn verify"},
		CachePaths: []string{"~/.m2/repository"},
	},
	{
		Name:       "gradle",
		Commands:   []string{"gradle build", "gradlew build", "gradlew assemble"},
		CachePaths: []string{"~/.gradle/caches"},
	},
	{
		Name:       "bundler",
		Commands:   []string{"bundle install"},
		CachePaths: []string{"vendor/bundle"},
	},
	{
		Name:       "composer",
		Commands:   []string{"composer install"},
		CachePaths: []string{"~/.composer/cache", "vendor"},
	},
}

// StepPhase is the canonical ordering of step roles within a job. Later
// phases consume what earlier phases produce.
type StepPhase int

const (
	PhaseOther StepPhase = iota
	PhaseCheckout
	PhaseSetup
	PhaseInstall
	PhaseBuild
	PhaseTest
	PhaseDeploy
)

func (p StepPhase) String() string {
	switch p {
	case PhaseCheckout:
		return "checkout"
	case PhaseSetup:
		return "setup"
	case PhaseInstall:
		return "install"
	case PhaseBuild:
		return "build"
	case PhaseTest:
		return "test"
	case PhaseDeploy:
		return "deploy"
	default:
		return "other"
	}
}

var phasePatterns = map[StepPhase][]string{
	PhaseCheckout: {"git clone", "git checkout", "git fetch"},
	PhaseSetup:    {"apt-get install", "apk add", "brew install"},
	PhaseInstall: {
		"npm install", "npm ci", "yarn install", "pnpm install",
		"pip install", "pip3 install", "poetry install",
		"go mod download", "cargo fetch", "bundle install",
		"composer install",
	},
	PhaseBuild: {
		"make build", "npm run build", "yarn build", "go build",
		"cargo build", "mvn package", "gradle build", "docker build",
		"make all",
	},
	PhaseTest: {
		"make test", "npm test", "npm run test", "yarn test", "pytest",
		"go test", "cargo test", "mvn test", "gradle test", "jest",
		"rspec", "tox",
	},
	PhaseDeploy: {"deploy", "docker push", "kubectl apply", "terraform apply"},
}

// commandIndex runs one multi-pattern pass over a command and reports which
// package managers and step phases it mentions.
type commandIndex struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	manager  map[int]int       // pattern index -> packageManagers index
	phase    map[int]StepPhase // pattern index -> phase
}

var commands = sync.OnceValue(func() *commandIndex {
	idx := &commandIndex{
		manager: make(map[int]int),
		phase:   make(map[int]StepPhase),
	}
	for mi, pm := range packageManagers {
		for _, cmd := range pm.Commands {
			idx.manager[len(idx.patterns)] = mi
			idx.patterns = append(idx.patterns, cmd)
		}
	}
	for ph, pats := range phasePatterns {
		for _, pat := range pats {
			idx.phase[len(idx.patterns)] = ph
			idx.patterns = append(idx.patterns, pat)
		}
	}
	idx.matcher = ahocorasick.NewStringMatcher(idx.patterns)
	return idx
})

// Managers returns the package managers a command invokes, in table order.
// The shared matcher is hit concurrently by the analyzer fan-out, so matching
// must go through MatchThreadSafe (plain Match mutates matcher state).
func (c *commandIndex) Managers(command string) []*PackageManager {
	seen := make(map[int]bool)
	for _, hit := range c.matcher.MatchThreadSafe([]byte(strings.ToLower(command))) {
		if mi, ok := c.manager[hit]; ok {
			seen[mi] = true
		}
	}
	var out []*PackageManager
	for mi := range packageManagers {
		if seen[mi] {
			out = append(out, &packageManagers[mi])
		}
	}
	return out
}

// Phase classifies a command into its step phase. A command matching several
// phases takes the latest one: a step that installs and also tests must be
// scheduled as a test step, never moved ahead of one.
func (c *commandIndex) Phase(command string) StepPhase {
	best := PhaseOther
	for _, hit := range c.matcher.MatchThreadSafe([]byte(strings.ToLower(command))) {
		if ph, ok := c.phase[hit]; ok && ph > best {
			best = ph
		}
	}
	return best
}
