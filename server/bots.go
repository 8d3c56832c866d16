package server

import (
	"fmt"
	"math"

	"github.com/lab1702/battletanks-web/game"
)

// addBot adds a computer-driven tank to the match
func (s *Server) addBot() error {
	bots := 0
	for _, tk := range s.match.Tanks {
		if tk.IsBot {
			bots++
		}
	}
	if bots >= s.cfg.MaxBots {
		return errTooManyBots
	}

	name := fmt.Sprintf("[BOT] %s", BotNames[s.rng.IntN(len(BotNames))])
	tk, err := s.match.AddTank(name, s.freeColor(), true)
	if err != nil {
		return err
	}
	s.logger.Info("Bot joined", "name", tk.Name, "tank", tk.ID)
	return nil
}

// updateBots lets the bot whose turn it is act, and lets every bot shop
// during the intermission.
func (s *Server) updateBots() {
	m := s.match

	switch m.Phase {
	case game.PhaseIntermission:
		s.bot = nil
		for _, tk := range m.Tanks {
			if tk.IsBot && s.shopped[tk.ID] != m.Round {
				s.shopped[tk.ID] = m.Round
				s.botShop(tk)
			}
		}
		return
	case game.PhaseAiming, game.PhaseTargeting:
	default:
		s.bot = nil
		return
	}

	tk := m.Current()
	if tk == nil || !tk.IsBot || !tk.Active() {
		s.bot = nil
		return
	}
	if s.bot == nil || s.bot.tank != tk.ID {
		plan := s.planTurn(tk)
		s.bot = &plan
	}

	if s.bot.wait > 0 {
		s.bot.wait--
		return
	}
	s.executePlan(tk, s.bot)
}

// planTurn picks a target, a weapon and the shot that lands nearest it.
func (s *Server) planTurn(tk *game.Tank) botPlan {
	m := s.match
	plan := botPlan{
		tank:   tk.ID,
		wait:   s.cfg.BotDelay,
		weapon: game.DefaultWeapon,
		angle:  tk.Angle,
		power:  tk.Power,
		target: tk.X,
		miss:   MissPenalty,
	}

	target := selectTarget(m, tk)
	if target == nil {
		return plan
	}
	dist := math.Abs(float64(target.X - tk.X))
	plan.weapon = chooseWeapon(tk, m.Armory, m.Ballistics, dist)
	plan.target = target.X

	w, _ := m.Armory.Weapon(plan.weapon)
	if w.Kind == game.KindTargeted {
		offset := s.rng.IntN(2*StrikeJitter+1) - StrikeJitter
		plan.target = target.X + offset
		plan.miss = math.Abs(float64(offset))
		return plan
	}
	plan.angle, plan.power, plan.miss = aimAt(m, tk, w, target.X)
	plan.angle = game.ClampAngle(plan.angle + randomJitterRad(s.rng))

	s.logger.Debug("Bot planned shot",
		"bot", tk.Name, "target", target.Name, "weapon", plan.weapon,
		"angle", plan.angle, "power", plan.power, "miss", plan.miss)
	return plan
}

// executePlan issues the commands for a planned turn.
func (s *Server) executePlan(tk *game.Tank, plan *botPlan) {
	if s.match.Phase == game.PhaseTargeting {
		if err := s.botCommand(tk, game.Command{Kind: game.CmdTarget, X: plan.target}); err != nil {
			s.botCommand(tk, game.Command{Kind: game.CmdCancel})
		}
		return
	}

	if tk.Health < BotRechargeHealth && tk.Upgrades[game.UpgradeRecharge] > 0 {
		s.botCommand(tk, game.Command{Kind: game.CmdRecharge})
	}
	if err := s.botCommand(tk, game.Command{Kind: game.CmdSelectWeapon, Name: plan.weapon}); err != nil {
		plan.weapon = game.DefaultWeapon
		s.botCommand(tk, game.Command{Kind: game.CmdSelectWeapon, Name: plan.weapon})
	}
	s.botCommand(tk, game.Command{Kind: game.CmdAim, Angle: plan.angle, Power: plan.power})

	if err := s.botCommand(tk, game.Command{Kind: game.CmdFire}); err != nil {
		// Try again later with the default weapon
		plan.weapon = game.DefaultWeapon
		plan.wait = s.cfg.BotDelay
	}
}

// botShop spends a bot's points between rounds.
func (s *Server) botShop(tk *game.Tank) {
	for _, item := range botShoppingList {
		if err := s.botCommand(tk, game.Command{Kind: item.kind, Name: item.name}); err == nil {
			s.logger.Debug("Bot bought", "bot", tk.Name, "item", item.name, "score", tk.TotalScore)
		}
	}
}

func (s *Server) botCommand(tk *game.Tank, cmd game.Command) error {
	cmd.Tank = tk.ID
	err := s.match.Apply(cmd)
	if err != nil {
		s.logger.Debug("Bot command rejected", "bot", tk.Name, "kind", cmd.Kind, "err", err)
	}
	return err
}
