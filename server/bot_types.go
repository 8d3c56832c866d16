package server

import "github.com/lab1702/battletanks-web/game"

// BotNames for generating random bot names
var BotNames = []string{
	"HAL-9000", "R2-D2", "C-3PO", "Data", "Bishop", "T-800",
	"Johnny-5", "WALL-E", "EVE", "Optimus", "Bender", "K-2SO",
	"BB-8", "IG-88", "HK-47", "GLaDOS", "SHODAN", "Cortana",
	"Friday", "Jarvis", "Vision", "Ultron", "Skynet", "Agent-Smith",
}

// botPlan is what a bot decided to do on its current turn.
type botPlan struct {
	tank   int // Tank ID
	wait   int // Ticks left before acting
	weapon string
	angle  float64
	power  float64
	target int     // Strike column for targeted weapons
	miss   float64 // Expected landing error in pixels
}

// botPurchase is one entry of the between-rounds shopping list.
type botPurchase struct {
	kind game.CommandKind
	name string
}

// botShoppingList is tried in order each intermission; entries the bot
// cannot afford are skipped.
var botShoppingList = []botPurchase{
	{game.CmdUpgrade, game.UpgradeArmor},
	{game.CmdBuyWeapon, game.WeaponVolcano},
	{game.CmdUpgrade, game.UpgradeRecharge},
	{game.CmdBuyWeapon, game.WeaponShower},
	{game.CmdBuyWeapon, game.WeaponKiloton},
}
