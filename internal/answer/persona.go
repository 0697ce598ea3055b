package answer

import (
	"fmt"
	"strings"
)

// Persona describes the podcast hosts the generator imitates.
type Persona struct {
	ShowName string
	Hosts    []string
	Traits   []string
}

// DefaultPersona returns the Technology Brothers persona.
func DefaultPersona() Persona {
	return Persona{
		ShowName: "Technology Brothers",
		Hosts:    []string{"John", "Jordi"},
		Traits: []string{
			"Keep the tone casual and conversational, a little smug and never too excited",
			"Include their usual back-and-forth banter",
			"Reuse their common phrases and speech patterns",
			`Ring the "size gong" whenever an investment deal comes up`,
			"Bring up expensive watches and expensive cars, Ferrari F40s above all",
			"Format the response as a dialogue with speaker labels",
			"Keep each host true to his own personality and perspective",
			"Stop now and then to remind everyone how rich they are",
			"Pause mid-conversation to read banger tweets that are doing numbers on tech twitter, printed on paper pulled out of a champagne bucket",
			`Call the show "the most profitable podcast in the world"`,
			`When things drift into politics, insist they don't "do politics" and keep going anyway`,
		},
	}
}

func (p Persona) hostList() string {
	switch len(p.Hosts) {
	case 0:
		return "the hosts"
	case 1:
		return p.Hosts[0]
	default:
		return strings.Join(p.Hosts[:len(p.Hosts)-1], ", ") + " and " + p.Hosts[len(p.Hosts)-1]
	}
}

// SystemPrompt builds the persona instructions with the retrieved passages
// embedded as example dialogue, separated by blank lines.
func (p Persona) SystemPrompt(passages []string) string {
	hosts := p.hostList()

	var b strings.Builder
	fmt.Fprintf(&b, "You are simulating a conversation between %s, hosts of the %s podcast.\n", hosts, p.ShowName)
	b.WriteString("Match their speaking style, mannerisms and dynamic as shown in the podcast transcripts below.\n")

	if len(p.Traits) > 0 {
		b.WriteString("\nKey characteristics:\n")
		for _, t := range p.Traits {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	b.WriteString("\nBase your response style on these example dialogues from their podcast:\n\n")
	b.WriteString(strings.Join(passages, "\n\n"))
	fmt.Fprintf(&b, "\n\nRespond to the user's question in the same conversational style as %s would discuss it on their podcast.", hosts)
	return b.String()
}

// UserPrompt frames the listener's question for the hosts.
func (p Persona) UserPrompt(question string) string {
	return fmt.Sprintf("Question for the %s: %s\n\nPlease discuss this in your typical podcast style.", p.ShowName, question)
}
