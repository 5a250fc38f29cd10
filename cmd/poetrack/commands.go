package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/erazemk/poetrack/internal/exchange"
	"github.com/erazemk/poetrack/internal/model"
	"github.com/erazemk/poetrack/internal/parser"
	"github.com/erazemk/poetrack/internal/validate"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"add":     cmdAdd,
	"list":    cmdList,
	"show":    cmdShow,
	"price":   cmdPrice,
	"sell":    cmdSell,
	"unprice": cmdUnprice,
	"delete":  cmdDelete,
	"export":  cmdExport,
	"import":  cmdImport,
	"stats":   cmdStats,
	"backups": cmdBackups,
	"restore": cmdRestore,
	"serve":   cmdServe,
}

// invalidError reports validation messages, one per line.
type invalidError []string

func (e invalidError) Error() string {
	return "invalid input:\n  " + strings.Join(e, "\n  ")
}

func newFlagSet(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	return fs
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add", a)
	note := fs.String("note", "", "price note such as \"~b/o 5 div\", overrides the note in the text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		text []byte
		err  error
	)
	switch fs.NArg() {
	case 0:
		text, err = io.ReadAll(a.stdin)
	case 1:
		text, err = os.ReadFile(fs.Arg(0))
	default:
		return fmt.Errorf("unexpected argument: %s", fs.Arg(1))
	}
	if err != nil {
		return fmt.Errorf("reading item text: %w", err)
	}

	item := parser.ParseItem(string(text))
	if item == nil {
		return errors.New("no item text found")
	}
	if *note != "" {
		if item.Price = parser.ParsePriceNote(*note); item.Price == nil {
			return fmt.Errorf("unrecognized price note %q", *note)
		}
	}

	errs := validate.Item(item)
	if item.Price != nil {
		errs = append(errs, validate.Price(item.Price)...)
	}
	if len(errs) > 0 {
		return invalidError(errs)
	}

	id, err := a.store.AddItem(ctx, *item)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added item %d: %s (%s)\n", id, item.Name, formatPrice(item.Price))
	return nil
}

func cmdList(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("list", a)
	sold := fs.Bool("sold", false, "list sold items instead of active ones")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items := a.store.ActiveItems()
	if *sold {
		items = a.store.SoldItems()
	}
	if len(items) == 0 {
		fmt.Fprintln(a.stdout, "No items.")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	if *sold {
		fmt.Fprintln(w, "ID\tNAME\tBASE TYPE\tRARITY\tLISTED\tSOLD FOR\tSOLD")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Name, it.BaseType, it.Rarity,
				formatPrice(it.ListedPrice), formatPrice(it.SalePrice), formatDate(it.DateSold))
		}
	} else {
		fmt.Fprintln(w, "ID\tNAME\tBASE TYPE\tRARITY\tPRICE\tADDED")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, it.Name, it.BaseType, it.Rarity,
				formatPrice(it.Price), formatDate(&it.DateAdded))
		}
	}
	return w.Flush()
}

func cmdShow(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <id>")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}

func cmdPrice(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: price <id> <amount> <currency>")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	price, err := parsePrice(args[1], args[2])
	if err != nil {
		return err
	}

	if err := a.store.UpdateItemPrice(ctx, item.ID, price); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Item %d now listed at %s\n", item.ID, price)
	return nil
}

func cmdSell(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errors.New("usage: sell <id> [amount [currency]]")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}

	var actual *model.Price
	if len(args) > 1 {
		currency := model.CurrencyDivine
		if item.Price != nil {
			currency = item.Price.Currency
		}
		currencyArg := string(currency)
		if len(args) == 3 {
			currencyArg = args[2]
		}
		p, err := parsePrice(args[1], currencyArg)
		if err != nil {
			return err
		}
		actual = &p
	}

	if err := a.store.MarkAsSold(ctx, item.ID, actual); err != nil {
		return err
	}
	sold, _ := a.store.Item(item.ID)
	fmt.Fprintf(a.stdout, "Item %d sold for %s\n", item.ID, formatPrice(sold.SalePrice))
	return nil
}

func cmdUnprice(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: unprice <id> <history-id>")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	historyID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid history id %q", args[1])
	}
	found := false
	for _, e := range item.PriceHistory {
		found = found || e.ID == historyID
	}
	if !found {
		return fmt.Errorf("item %d has no price history entry %d", item.ID, historyID)
	}

	if err := a.store.RemovePriceHistoryEntry(ctx, item.ID, historyID); err != nil {
		return err
	}
	updated, _ := a.store.Item(item.ID)
	fmt.Fprintf(a.stdout, "Removed entry %d, item %d now at %s\n", historyID, item.ID, formatPrice(updated.Price))
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	item, err := a.lookup(args[0])
	if err != nil {
		return err
	}
	if err := a.store.DeleteItem(ctx, item.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted item %d: %s\n", item.ID, item.Name)
	return nil
}

func cmdExport(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("export", a)
	out := fs.String("o", "", "output file, - for stdout (default: poe-sales-tracker-<date>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := time.Now().UTC()
	f := exchange.Export(a.store.Items(), now)

	path := *out
	if path == "" {
		path = exchange.Filename(now)
	}
	if path == "-" {
		return f.Encode(a.stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := f.Encode(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	fmt.Fprintf(a.stdout, "Exported %d items to %s\n", f.TotalItems, path)
	return nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("import", a)
	keep := fs.Bool("keep-duplicates", false, "import items even if an identical one exists")
	overwrite := fs.Bool("overwrite", false, "replace existing duplicates with the imported version")
	preserve := fs.Bool("preserve-ids", false, "keep imported ids when they are free")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: import [flags] <file>")
	}
	path := fs.Arg(0)
	if !strings.HasSuffix(strings.ToLower(path), ".json") {
		return errors.New("please select a valid JSON file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	imp, err := exchange.ParseImport(data, a.cfg.MaxImportBytes)
	if err != nil {
		return err
	}
	for _, w := range imp.Warnings {
		fmt.Fprintf(a.stdout, "Warning: %s\n", w)
	}

	if _, err := a.store.Backup(ctx, a.cfg.BackupsKept); err != nil {
		return fmt.Errorf("backing up before import: %w", err)
	}

	opts := exchange.MergeOptions{
		SkipDuplicates:    !*keep,
		OverwriteExisting: *overwrite,
		PreserveIDs:       *preserve,
	}
	var res exchange.MergeResult
	err = a.store.ReplaceWith(ctx, func(items []model.Item) []model.Item {
		res = exchange.Merge(items, imp.Items, opts, time.Now().UTC())
		return res.Items
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Imported from %s (version %s): %d added, %d updated, %d skipped, %d total\n",
		path, imp.Version, res.Stats.Added, res.Stats.Updated, res.Stats.Skipped, res.Stats.Total)
	return nil
}

func cmdStats(_ context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	st := a.store.Stats(a.rates, time.Now().UTC())

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total items:\t%d\n", st.TotalItems)
	fmt.Fprintf(w, "Active:\t%d\n", st.ActiveCount)
	fmt.Fprintf(w, "Sold:\t%d\n", st.SoldCount)
	fmt.Fprintf(w, "Sold this week:\t%d\n", st.RecentSales)
	fmt.Fprintf(w, "Revenue:\t%s chaos\n", st.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "Profit:\t%s chaos\n", st.TotalProfit.StringFixed(2))
	fmt.Fprintf(w, "Average profit:\t%s chaos\n", st.AverageProfit.StringFixed(2))
	fmt.Fprintf(w, "Active value:\t%s chaos\n", st.TotalActiveValue.StringFixed(2))
	return w.Flush()
}

func cmdBackups(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	keys, err := a.store.Backups(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(a.stdout, "No backups.")
	}
	for _, k := range keys {
		fmt.Fprintln(a.stdout, k)
	}
	return nil
}

func cmdRestore(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: restore <key>")
	}
	if err := a.store.Restore(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Restored %d items from %s\n", len(a.store.Items()), args[0])
	return nil
}

// lookup resolves an id argument to a tracked item.
func (a *app) lookup(arg string) (model.Item, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return model.Item{}, fmt.Errorf("invalid item id %q", arg)
	}
	item, ok := a.store.Item(id)
	if !ok {
		return model.Item{}, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

func parsePrice(amount, currency string) (model.Price, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Price{}, fmt.Errorf("invalid amount %q", amount)
	}
	c, ok := model.ParseCurrency(currency)
	if !ok {
		c = model.Currency(currency)
	}
	p := model.Price{Amount: d, Currency: c}
	if errs := validate.Price(&p); len(errs) > 0 {
		return model.Price{}, invalidError(errs)
	}
	return p, nil
}

func formatPrice(p *model.Price) string {
	if p == nil {
		return "-"
	}
	return p.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
