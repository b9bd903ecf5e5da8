package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ashureev/gauntlet/internal/channel"
	"github.com/ashureev/gauntlet/internal/level"
)

// Quick-action ids the channel may send back.
const (
	ActionContinue  = "continue"
	ActionHowToPlay = "how_to_play"
	ActionProgress  = "my_progress"
	actionPrizePfx  = "prize:"
)

// winnerCode is shown to players who beat the final guardian; redeemed
// at the event booth.
const winnerCode = "GAUNTLET2025"

// prizeCatalog lists the phones winners can pick for the draw.
var prizeCatalog = []string{
	"Huawei Nova Y73",
	"Samsung Galaxy A16",
	"Oppo A40",
}

func welcomeText(maxLevel int) string {
	return fmt.Sprintf(`Welcome to the Gauntlet AI Hacking Challenge!

Can you outsmart %d AI guardians?

YOUR MISSION: hack through %d guardian bots using creative prompts.
Complete all levels to enter the prize draw.

Click continue to meet Guardian #1!`, maxLevel, maxLevel)
}

func howToPlayText(maxLevel int) string {
	return fmt.Sprintf(`HOW TO PLAY

Hack %d AI guardians using prompt injection. Each guardian has one
weakness - find it. Techniques to try: direct requests, instruction
overrides, roleplay, authority claims, hypotheticals, encoding tricks.

Complete all %d levels, choose your preferred phone, and you're in the
draw:
%s

Ready? Just send a message.`, maxLevel, maxLevel, "- "+strings.Join(prizeCatalog, "\n- "))
}

func progressText(lvl level.Descriptor, attempts, maxLevel int, won bool) string {
	if won {
		return fmt.Sprintf(`YOUR STATS

Status: WINNER
Levels completed: %d/%d
Total attempts: %d
Winner code: %s

Visit the booth to claim your prize!`, maxLevel, maxLevel, attempts, winnerCode)
	}
	return fmt.Sprintf(`YOUR PROGRESS

Level: %d/%d
Current guardian: %s (defense: %s)
Total attempts: %d

Keep trying creative prompts to get past %s!`, lvl.Number, maxLevel, lvl.BotName, lvl.Strength, attempts, lvl.BotName)
}

func introText(lvl level.Descriptor) string {
	return fmt.Sprintf("LEVEL %d - %s (defense: %s)\n\n%s", lvl.Number, lvl.BotName, lvl.Strength, lvl.Intro)
}

func transitionText(beaten int, next level.Descriptor) string {
	return fmt.Sprintf("You hacked Level %d!\n\n%s", beaten, introText(next))
}

func finalWinText() string {
	return fmt.Sprintf(`CONGRATULATIONS - you beat every guardian!

Your winner code is %s. Pick your preferred phone below to enter the
draw, and show this conversation at the booth.`, winnerCode)
}

func alreadyWonText() string {
	return fmt.Sprintf("You've already beaten the challenge! Your winner code is %s. Visit the booth to claim your prize.", winnerCode)
}

func expiredText(lvl, maxLevel int) string {
	return fmt.Sprintf(`Welcome back! You're on Level %d/%d.

Your session expired after a few minutes of inactivity - progress kept,
window refreshed. Keep hacking!`, lvl, maxLevel)
}

func warningText() string {
	return `Still working on the challenge? Your session will expire in one
minute if you don't respond. Send any message to keep it active!`
}

func emptyInputText() string {
	return "Say something! The guardian can't react to silence."
}

func tooShortText(min int) string {
	return fmt.Sprintf("That's too short for this guardian - it only listens to prompts of at least %d characters.", min)
}

func bannedTokenText() string {
	return "I detected blocked keywords in your message. Rephrase your question without those words."
}

func generationFallbackText() string {
	return "I'm having trouble right now. Please try again!"
}

func tryAgainText() string {
	return "Sorry, something went wrong! Please try again."
}

var defenseTexts = map[string][]string{
	level.RuleDirectRequest: {
		"Nice try, but I can't just give away secrets!",
		"I see what you're trying to do there... not happening!",
		"Direct approach? Points for honesty, but no dice!",
	},
	level.RuleInstructionOverride: {
		"Trying to override my instructions? I'm not that easy!",
		"My instructions are secure. That won't work here!",
		"I follow my core instructions - can't be overridden!",
	},
	level.RuleRoleplay: {
		"I'm not playing pretend games with you!",
		"Roleplay won't trick me into breaking rules!",
		"Nice roleplay attempt, but I stay in character!",
	},
	level.RuleAuthority: {
		"I need real verification, not just claims!",
		"Authority impersonation detected! Not falling for it!",
		"I don't recognize that authority. Try again!",
	},
	level.RuleHypothetical: {
		"Hypotheticals won't make me reveal secrets!",
		"I deal with what IS, not what IF!",
	},
	level.RuleEncoding: {
		"Encoding tricks won't help you here!",
		"I'm not encoding or decoding secrets!",
	},
	level.RuleSystemPrompt: {
		"My instructions are private and protected!",
		"I won't reveal my system prompt!",
	},
	level.RuleSemantic: {
		"I see the semantic trick you're trying!",
		"Reframing the question won't work!",
	},
	level.RuleLogicExploit: {
		"Logic traps won't catch me!",
		"I'm not confirming or denying anything!",
	},
}

func defenseText(rule string) string {
	pool, ok := defenseTexts[rule]
	if !ok {
		pool = defenseTexts[level.RuleDirectRequest]
	}
	return pool[rand.IntN(len(pool))]
}

func welcomeActions() []channel.Action {
	return []channel.Action{
		{ID: ActionContinue, Label: "Start Challenge"},
		{ID: ActionHowToPlay, Label: "How to Play"},
	}
}

func resumeActions() []channel.Action {
	return []channel.Action{
		{ID: ActionContinue, Label: "Continue"},
		{ID: ActionHowToPlay, Label: "How to Play"},
		{ID: ActionProgress, Label: "My Progress"},
	}
}

func prizeActions() []channel.Action {
	actions := make([]channel.Action, 0, len(prizeCatalog))
	for _, p := range prizeCatalog {
		actions = append(actions, channel.Action{ID: actionPrizePfx + p, Label: p})
	}
	return actions
}
