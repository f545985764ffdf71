package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"mmdr-storefront/internal/checkout"
	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/money"
	"mmdr-storefront/internal/storefront"
)

var errUsage = errors.New("usage")

type app struct {
	session    *storefront.Session
	out        io.Writer
	retryEvery time.Duration
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "cart":
		return a.cart(ctx, args[1:])
	case "fav":
		return a.favorites(ctx, args[1:])
	case "checkout":
		return a.checkout(ctx, args[1:])
	case "outbox":
		return a.outbox(ctx, args[1:])
	case "products":
		return a.products(ctx, args[1:])
	default:
		return errUsage
	}
}

func arg(args []string, i int) (string, error) {
	if i >= len(args) || args[i] == "" {
		return "", errUsage
	}
	return args[i], nil
}

func (a *app) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	c := a.session.Cart
	switch args[0] {
	case "show":
		a.printCart()
		return nil
	case "add":
		id, err := arg(args, 1)
		if err != nil {
			return err
		}
		p, err := a.session.AddToCart(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Agregado: %s (%s)\n", p.Name, money.Price(p.Price))
	case "set":
		id, err := arg(args, 1)
		if err != nil {
			return err
		}
		raw, err := arg(args, 2)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("cantidad inválida %q", raw)
		}
		if !c.SetQuantity(ctx, id, n) {
			return fmt.Errorf("producto %s no está en el carrito", id)
		}
	case "inc", "dec", "remove":
		id, err := arg(args, 1)
		if err != nil {
			return err
		}
		var ok bool
		switch args[0] {
		case "inc":
			ok = c.Increment(ctx, id)
		case "dec":
			ok = c.Decrement(ctx, id)
		default:
			ok = c.RemoveProduct(ctx, id)
		}
		if !ok {
			return fmt.Errorf("producto %s no está en el carrito", id)
		}
	case "clear":
		c.Clear(ctx)
	default:
		return errUsage
	}
	a.printCart()
	return nil
}

func (a *app) printCart() {
	s := a.session.Cart.Summary()
	if len(s.Items) == 0 {
		fmt.Fprintln(a.out, "Tu carrito está vacío")
		return
	}
	for _, it := range s.Items {
		fmt.Fprintf(a.out, "%-12s %-32s %3d x %10s = %12s\n", it.ID, it.Name, it.Quantity, money.Price(it.UnitPrice), money.Price(it.Subtotal()))
	}
	t := checkout.ComputeTotals(s.Subtotal)
	fmt.Fprintf(a.out, "Productos: %d\nSubtotal: %s\nEnvío: %s\nTotal: %s\n",
		s.Count, money.Price(t.Subtotal), money.Shipping(t.Shipping), money.Price(t.Total))
}

func (a *app) favorites(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
	case "toggle":
		id, err := arg(args, 1)
		if err != nil {
			return err
		}
		saved, err := a.session.ToggleFavorite(ctx, id)
		if err != nil {
			return err
		}
		if saved {
			fmt.Fprintln(a.out, "Agregado a favoritos")
		} else {
			fmt.Fprintln(a.out, "Eliminado de favoritos")
		}
	case "clear":
		a.session.Favorites.Clear(ctx)
	default:
		return errUsage
	}
	items := a.session.Favorites.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No tenés favoritos")
		return nil
	}
	for _, f := range items {
		fmt.Fprintf(a.out, "%-12s %-32s %10s  %s\n", f.ID, f.Name, money.Price(f.Price), f.Category)
	}
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	var (
		info checkout.ShippingInfo
		card checkout.CardDetails
	)
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&info.FirstName, "first-name", "", "nombre")
	fs.StringVar(&info.LastName, "last-name", "", "apellido")
	fs.StringVar(&info.Email, "email", "", "email")
	fs.StringVar(&info.Phone, "phone", "", "teléfono")
	fs.StringVar(&info.Street, "street", "", "dirección")
	fs.StringVar(&info.City, "city", "", "ciudad")
	fs.StringVar(&info.Province, "state", "", "provincia")
	fs.StringVar(&info.PostalCode, "zip", "", "código postal")
	method := fs.String("method", "", "método de pago (credit-card, debit-card, paypal, bank-transfer, ...)")
	fs.StringVar(&card.Number, "card-number", "", "número de tarjeta")
	fs.StringVar(&card.Expiry, "card-expiry", "", "vencimiento MM/AA")
	fs.StringVar(&card.CVV, "card-cvv", "", "CVV")
	fs.StringVar(&card.Holder, "card-holder", "", "titular")
	abandon := fs.Bool("abandon", false, "descartar el checkout guardado")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	info.PaymentMethod = domain.PaymentMethod(*method)

	if *abandon {
		return a.session.AbandonCheckout(ctx)
	}

	o, err := a.session.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total a pagar: %s (envío %s)\n", money.Price(o.Totals().Total), money.Shipping(o.Totals().Shipping))

	if info.FirstName != "" && o.Stage() == checkout.StagePayment {
		if err := o.Back(); err != nil {
			return err
		}
	}
	if o.Stage() == checkout.StageShippingInfo {
		if err := o.SubmitShipping(ctx, info); err != nil {
			return describe(err)
		}
	}
	if o.Draft().Customer.PaymentMethod.IsCard() {
		if err := o.SubmitCard(card); err != nil {
			return describe(err)
		}
	}

	fmt.Fprintln(a.out, "Procesando pago...")
	res, err := o.Pay(ctx)
	if err != nil {
		var perr *checkout.PaymentError
		if errors.As(err, &perr) {
			return fmt.Errorf("%s. Podés reintentar el pago", perr.Reason)
		}
		return err
	}
	if err := checkout.WriteReceipt(a.out, res.Sale); err != nil {
		return err
	}
	if !res.Synced {
		fmt.Fprintf(a.out, "La venta quedó guardada localmente y se reenviará (%v)\n", res.SyncErr)
	}
	return nil
}

// describe flattens a validation error into one line per field.
func describe(err error) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return errors.New(verr.Error())
}

func (a *app) outbox(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		entries, err := a.session.Outbox.Pending(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(a.out, "No hay ventas pendientes")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(a.out, "%s  %s  %s  intentos=%d  %s\n", e.Sale.OrderNumber, e.EnqueuedAt.Format(time.RFC3339), money.Price(e.Sale.Totals.Total), e.Attempts, e.LastError)
		}
		return nil
	case "flush":
		fs := flag.NewFlagSet("flush", flag.ContinueOnError)
		watch := fs.Bool("watch", false, "seguir reintentando hasta interrumpir")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		r := a.session.Retrier(a.retryEvery)
		report, err := r.Flush(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Enviadas: %d  Descartadas: %d  Pendientes con error: %d\n", report.Delivered, report.Dropped, report.Failed)
		if *watch {
			r.Run(ctx)
		}
		return nil
	default:
		return errUsage
	}
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	limit := fs.Int("limit", 4, "cantidad de productos")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	items, err := a.session.Recommended(ctx, *limit)
	if err != nil {
		return err
	}
	for _, p := range items {
		line := fmt.Sprintf("%-36s %-32s %10s", p.ID, p.Name, money.Price(p.Price))
		if p.OriginalPrice != nil && *p.OriginalPrice > p.Price {
			line += fmt.Sprintf("  antes %s (-%d%%)", money.Price(*p.OriginalPrice), p.Discount)
		}
		if p.Stock == 0 {
			line += "  sin stock"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}
