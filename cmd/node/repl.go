package main

import (
	"context"
	"io"
	"strings"

	"github.com/hazzery/decent-share/internal/client"
	"github.com/hazzery/decent-share/internal/eventloop"
	"github.com/hazzery/decent-share/internal/infra/pr"
)

// runShell starts a goroutine printing inbound events and then reads
// operator commands from readline until ctx is done or stdin closes.
func runShell(ctx context.Context, c *client.Client, events <-chan eventloop.Event) {
	go printEvents(ctx, events)

	pr.SetPrompt("decent-share> ")
	rl := pr.Rl()

	go func() {
		<-ctx.Done()
		pr.InterruptReadline()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF {
				return
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		dispatch(c, line)
	}
}

func dispatch(c *client.Client, line string) {
	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "register":
		if len(args) != 1 {
			pr.Println("usage: register <username>")
			return
		}
		if err := c.RegisterUsername(args[0]); err != nil {
			pr.ErrPrintln("register:", err)
		}

	case "find":
		if len(args) != 1 {
			pr.Println("usage: find <username>")
			return
		}
		id, ok := c.FindUser(args[0])
		if !ok {
			pr.Println("no such user:", args[0])
			return
		}
		pr.Println(id.String())

	case "chat":
		if len(args) == 0 {
			pr.Println("usage: chat <message...>")
			return
		}
		if err := c.SendChatMessage(strings.Join(args, " ")); err != nil {
			pr.ErrPrintln("chat:", err)
		}

	case "dm":
		if len(args) < 2 {
			pr.Println("usage: dm <username> <message...>")
			return
		}
		if err := c.DirectMessage(args[0], strings.Join(args[1:], " ")); err != nil {
			pr.ErrPrintln("dm:", err)
		}

	case "offer":
		if len(args) != 5 {
			pr.Println("usage: offer <username> <offered-name> <offered-path> <requested-name> <requested-path>")
			return
		}
		err := c.OfferTrade(args[0], args[1], args[2], args[3], args[4])
		if err != nil {
			pr.ErrPrintln("offer:", err)
		}

	case "accept":
		if len(args) != 4 {
			pr.Println("usage: accept <username> <offered-name> <requested-name> <requested-path>")
			return
		}
		bytes, err := c.AcceptTrade(args[0], args[1], args[2], args[3])
		if err != nil {
			pr.ErrPrintln("accept:", err)
			return
		}
		pr.Printf("received %d bytes\n", len(bytes))

	case "decline":
		if len(args) != 3 {
			pr.Println("usage: decline <username> <offered-name> <requested-name>")
			return
		}
		if err := c.DeclineTrade(args[0], args[1], args[2]); err != nil {
			pr.ErrPrintln("decline:", err)
		}

	default:
		pr.Println("unknown command:", verb)
	}
}

func printEvents(ctx context.Context, events <-chan eventloop.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			printEvent(ev)
		}
	}
}

func printEvent(ev eventloop.Event) {
	switch e := ev.(type) {
	case eventloop.InboundChatEvent:
		pr.Printf("[chat] %s: %s\n", e.PeerID, e.Message)
	case eventloop.InboundDirectMessageEvent:
		pr.Printf("[dm] %s: %s\n", e.PeerID, e.Message)
	case eventloop.InboundTradeOfferEvent:
		pr.Printf("[trade-offer] %s offers %s for %s\n", e.PeerID, e.OfferedFileName, e.RequestedFileName)
	case eventloop.InboundTradeResponseEvent:
		pr.Printf("[trade-response] %s %s trade for %s/%s\n", e.PeerID, acceptedWord(e.WasAccepted), e.OfferedFileName, e.RequestedFileName)
	case eventloop.RegistrationRequestEvent:
		pr.Printf("[registration] %s\n", e.Username)
	}
}

func acceptedWord(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "declined"
}
