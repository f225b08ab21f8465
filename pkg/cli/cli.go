package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

// GroupEntry is a named toggle registered as both -<prefix><name> and
// -<prefix>no-<name>.
type GroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     map[string][]GroupEntry
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		groups:     make(map[string][]GroupEntry),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, usage, expectedType string) {
	*p = nil
	f.Var(&listValue{p}, name, shorthand, usage, "", expectedType)
}

// AddGroup registers toggle pairs under a shared prefix, e.g. warnings as
// -Wname / -Wno-name.
func (f *FlagSet) AddGroup(title string, entries []GroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.groups[title] = entries
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		name := strings.TrimLeft(arg, "-")
		var inlineValue string
		hasInline := false
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name, inlineValue = name[:eq], name[eq+1:]
			hasInline = true
		}

		flag := f.flags[name]
		if flag == nil && !strings.HasPrefix(arg, "--") {
			flag = f.shorthands[name]
		}
		if flag == nil {
			return fmt.Errorf("unknown flag: %s", arg)
		}

		if hasInline {
			if err := flag.Value.Set(inlineValue); err != nil {
				return err
			}
			continue
		}
		if _, isBool := flag.Value.(*boolValue); isBool {
			if err := flag.Value.Set(""); err != nil {
				return err
			}
			continue
		}
		if i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: %s", arg)
		}
		i++
		if err := flag.Value.Set(arguments[i]); err != nil {
			return err
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", a.Name)
		return err
	}
	if help {
		a.printHelp(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) printHelp(w *os.File) {
	width := terminalWidth()

	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		fmt.Fprintf(w, "\n%s\n", a.Description)
	}
	if a.Repository != "" {
		fmt.Fprintf(w, "For more details refer to %s\n", a.Repository)
	}

	grouped := make(map[string]bool)
	for _, entries := range a.FlagSet.groups {
		for _, e := range entries {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}

	var options []*Flag
	leftWidth := 0
	for name, flag := range a.FlagSet.flags {
		if grouped[name] {
			continue
		}
		options = append(options, flag)
		if n := len(flagLabel(flag)); n > leftWidth {
			leftWidth = n
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })

	fmt.Fprintf(w, "\nOptions\n")
	for _, flag := range options {
		printEntry(w, flagLabel(flag), flag.Usage, leftWidth, width)
	}

	var titles []string
	for title := range a.FlagSet.groups {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		entries := a.FlagSet.groups[title]
		fmt.Fprintf(w, "\n%s (-%s<name>, -%sno-<name>)\n", title, entries[0].Prefix, entries[0].Prefix)
		nameWidth := 0
		for _, e := range entries {
			if len(e.Name) > nameWidth {
				nameWidth = len(e.Name)
			}
		}
		sorted := make([]GroupEntry, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		for _, e := range sorted {
			mark := "-"
			if e.Enabled != nil && *e.Enabled {
				mark = "x"
			}
			printEntry(w, fmt.Sprintf("%-*s |%s|", nameWidth, e.Name, mark), e.Usage, nameWidth+4, width)
		}
	}
}

func flagLabel(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func printEntry(w *os.File, left, usage string, leftWidth, termWidth int) {
	avail := termWidth - leftWidth - 5
	if avail < 10 {
		avail = 10
	}
	lines := wrapText(usage, avail)
	if len(lines) == 0 {
		lines = []string{""}
	}
	fmt.Fprintf(w, "  %-*s %s\n", leftWidth, left, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(w, "  %-*s %s\n", leftWidth, "", line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len() > 0 && cur.Len()+1+len(word) > maxWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	lines = append(lines, cur.String())
	return lines
}
